package backend

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrUnsupported is returned when a backend cannot satisfy a request,
	// such as an unknown texture format.
	ErrUnsupported = errors.New("backend: unsupported")

	// ErrDestroyed is returned when a destroyed object is used.
	ErrDestroyed = errors.New("backend: object destroyed")

	// ErrInvalidSize is returned for zero or negative dimensions.
	ErrInvalidSize = errors.New("backend: invalid size")

	// ErrNoScreen is returned when drawing to the screen before a screen
	// surface is configured.
	ErrNoScreen = errors.New("backend: no screen surface")
)

// Fixed bind group slots shared by every program.
const (
	BindingUniforms     = 0
	BindingSampler      = 1
	BindingFirstTexture = 2
)

// Destroyer releases the GPU memory behind an object.
type Destroyer interface {
	Destroy()
}

// Texture is a sampled image.
type Texture interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
	Destroy()
}

// RenderTarget is an offscreen destination with one or more color
// attachments and an optional depth attachment.
type RenderTarget interface {
	Width() int
	Height() int

	// ColorAttachments returns the current attachments. The slice and its
	// textures are replaced by Resize when the size changes.
	ColorAttachments() []Texture

	// DepthAttachment returns nil when the target has no depth buffer.
	DepthAttachment() Texture

	// Resize reallocates attachments. Resizing to the current size is a
	// no-op and allocates nothing.
	Resize(width, height int) error

	Destroy()
}

// Program is a compiled fullscreen shader program.
type Program interface {
	Label() string
	Destroy()
}

// RenderTargetDescriptor describes a render target allocation.
type RenderTargetDescriptor struct {
	Label  string
	Width  int
	Height int

	// ColorFormats lists one format per color attachment, in location order.
	ColorFormats []gputypes.TextureFormat

	// DepthFormat is gputypes.TextureFormatUndefined for no depth buffer.
	DepthFormat gputypes.TextureFormat
}

// TextureSlot describes one sampled texture binding of a program.
type TextureSlot struct {
	// Name is the WGSL variable name.
	Name string

	// Depth marks a texture_depth_2d binding.
	Depth bool
}

// ProgramDescriptor describes a fullscreen program.
type ProgramDescriptor struct {
	Label string

	// Source is WGSL with preprocessor directives. It must declare
	// vs_main and fs_main entry points.
	Source string

	// Defines are applied by the backend preprocessor before compilation.
	Defines map[string]string

	// Textures lists texture bindings starting at BindingFirstTexture.
	Textures []TextureSlot

	// UniformSize is the size in bytes of the uniform block at
	// BindingUniforms. It is rounded up to 16 by the backend.
	UniformSize int
}

// DrawCall is one fullscreen draw.
type DrawCall struct {
	Label   string
	Program Program

	// Target receives the draw. A nil target draws to the screen.
	Target RenderTarget

	// Uniforms is the packed uniform block.
	Uniforms []byte

	// Textures are bound in ProgramDescriptor.Textures order.
	Textures []Texture
}

// Backend allocates GPU objects and executes draws.
type Backend interface {
	CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error)
	CompileProgram(desc ProgramDescriptor) (Program, error)
	Draw(call DrawCall) error

	// Clear fills every color attachment of target with c. A nil target
	// clears the screen.
	Clear(target RenderTarget, c gputypes.Color) error

	// ScreenFormat returns the texture format of the screen surface.
	ScreenFormat() gputypes.TextureFormat

	Destroy()
}

// Blitter is implemented by backends that can copy a texture into a
// render target without a shader program.
type Blitter interface {
	Blit(src Texture, dst RenderTarget) error
}

// ScreenResizer is implemented by backends that own their screen surface.
type ScreenResizer interface {
	ResizeScreen(width, height int) error
}
