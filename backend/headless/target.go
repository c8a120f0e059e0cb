package headless

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
)

// RenderTarget is a set of CPU textures.
type RenderTarget struct {
	label       string
	width       int
	height      int
	formats     []gputypes.TextureFormat
	depthFormat gputypes.TextureFormat
	colors      []backend.Texture
	depth       *Texture
	allocations int
	destroyed   bool
}

func newRenderTarget(desc backend.RenderTargetDescriptor) (*RenderTarget, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", backend.ErrInvalidSize, desc.Width, desc.Height)
	}
	for _, f := range desc.ColorFormats {
		if f == gputypes.TextureFormatUndefined || isDepthFormat(f) {
			return nil, fmt.Errorf("%w: color format %v", backend.ErrUnsupported, f)
		}
	}
	if desc.DepthFormat != gputypes.TextureFormatUndefined && !isDepthFormat(desc.DepthFormat) {
		return nil, fmt.Errorf("%w: depth format %v", backend.ErrUnsupported, desc.DepthFormat)
	}

	rt := &RenderTarget{
		label:       desc.Label,
		formats:     append([]gputypes.TextureFormat(nil), desc.ColorFormats...),
		depthFormat: desc.DepthFormat,
	}
	rt.allocate(desc.Width, desc.Height)
	return rt, nil
}

func (rt *RenderTarget) allocate(w, h int) {
	rt.release()
	rt.width, rt.height = w, h
	rt.colors = make([]backend.Texture, len(rt.formats))
	for i, f := range rt.formats {
		rt.colors[i] = newTexture(fmt.Sprintf("%s_color%d", rt.label, i), w, h, f)
	}
	if rt.depthFormat != gputypes.TextureFormatUndefined {
		rt.depth = newTexture(rt.label+"_depth", w, h, rt.depthFormat)
	}
	rt.allocations++
}

func (rt *RenderTarget) release() {
	for _, c := range rt.colors {
		c.Destroy()
	}
	rt.colors = nil
	if rt.depth != nil {
		rt.depth.Destroy()
		rt.depth = nil
	}
}

// Width returns the target width.
func (rt *RenderTarget) Width() int { return rt.width }

// Height returns the target height.
func (rt *RenderTarget) Height() int { return rt.height }

// ColorAttachments returns the color textures in location order.
func (rt *RenderTarget) ColorAttachments() []backend.Texture { return rt.colors }

// DepthAttachment returns the depth texture or nil.
func (rt *RenderTarget) DepthAttachment() backend.Texture {
	if rt.depth == nil {
		return nil
	}
	return rt.depth
}

// Allocations counts how many times attachments were allocated.
func (rt *RenderTarget) Allocations() int { return rt.allocations }

// Destroyed reports whether Destroy was called.
func (rt *RenderTarget) Destroyed() bool { return rt.destroyed }

// Resize reallocates attachments when the size changes.
func (rt *RenderTarget) Resize(width, height int) error {
	if rt.destroyed {
		return backend.ErrDestroyed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", backend.ErrInvalidSize, width, height)
	}
	if width == rt.width && height == rt.height {
		return nil
	}
	rt.allocate(width, height)
	return nil
}

// Destroy releases all attachments.
func (rt *RenderTarget) Destroy() {
	if rt.destroyed {
		return
	}
	rt.release()
	rt.destroyed = true
}
