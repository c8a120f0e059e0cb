package postfx

import "errors"

// Pipeline errors.
var (
	// ErrNilPass is returned when adding a nil pass to a pipeline.
	ErrNilPass = errors.New("postfx: nil pass")

	// ErrPassOwned is returned when adding a pass that already belongs to
	// another pipeline.
	ErrPassOwned = errors.New("postfx: pass belongs to another pipeline")

	// ErrPipelineDisposed is returned by operations on a disposed pipeline.
	ErrPipelineDisposed = errors.New("postfx: pipeline disposed")

	// ErrNotCompiled is returned by Render after a failed Compile.
	ErrNotCompiled = errors.New("postfx: pipeline not compiled")

	// ErrNoBackend is returned when a pass renders before it is attached to
	// a pipeline with a backend.
	ErrNoBackend = errors.New("postfx: no backend")

	// ErrMissingBuffer is returned when a pass renders without a texture
	// its program samples.
	ErrMissingBuffer = errors.New("postfx: missing input buffer")
)

// Effect errors.
var (
	// ErrConvolutionConflict is returned when two convolution effects would
	// be merged into one program. A convolution reads neighboring texels of
	// the unmodified input, so it cannot follow another convolution.
	ErrConvolutionConflict = errors.New("postfx: more than one convolution effect in a program")

	// ErrNoEntryPoint is returned for effects that define neither mainImage
	// nor mainUv.
	ErrNoEntryPoint = errors.New("postfx: effect defines neither mainImage nor mainUv")

	// ErrUnsupportedUniform is returned for uniform values that cannot be
	// represented in a WGSL uniform block.
	ErrUnsupportedUniform = errors.New("postfx: unsupported uniform type")
)

// ErrInvalidGBufferConfig is returned by GBufferConfig.Validate.
var ErrInvalidGBufferConfig = errors.New("postfx: invalid g-buffer config")
