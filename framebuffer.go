package postfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// FrameBufferType selects the precision of intermediate color buffers.
type FrameBufferType int

const (
	// FrameBufferUnsignedByte stores 8 bits per channel.
	FrameBufferUnsignedByte FrameBufferType = iota

	// FrameBufferHalfFloat stores 16-bit floats per channel, for HDR work.
	FrameBufferHalfFloat
)

// DefineHighPrecision is set on programs whose input buffer is half float.
const DefineHighPrecision = "FRAMEBUFFER_PRECISION_HIGH"

// ColorFormat returns the texture format for the type.
func (t FrameBufferType) ColorFormat() gputypes.TextureFormat {
	if t == FrameBufferHalfFloat {
		return gputypes.TextureFormatRGBA16Float
	}
	return gputypes.TextureFormatRGBA8Unorm
}

func (t FrameBufferType) String() string {
	switch t {
	case FrameBufferUnsignedByte:
		return "unsigned-byte"
	case FrameBufferHalfFloat:
		return "half-float"
	}
	return fmt.Sprintf("FrameBufferType(%d)", int(t))
}

// ParseFrameBufferType parses the String form.
func ParseFrameBufferType(s string) (FrameBufferType, error) {
	switch s {
	case "", "unsigned-byte":
		return FrameBufferUnsignedByte, nil
	case "half-float":
		return FrameBufferHalfFloat, nil
	}
	return 0, fmt.Errorf("postfx: unknown frame buffer type %q", s)
}
