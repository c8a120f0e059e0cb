package headless

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/shader"
	xdraw "golang.org/x/image/draw"
)

// Program is a preprocessed and optionally compiled program.
type Program struct {
	label     string
	source    string
	spirv     []uint32
	textures  []backend.TextureSlot
	uniforms  int
	destroyed bool
}

// Label returns the program label.
func (p *Program) Label() string { return p.label }

// Source returns the preprocessed WGSL.
func (p *Program) Source() string { return p.source }

// SPIRV returns the compiled words, or nil when compilation is disabled.
func (p *Program) SPIRV() []uint32 { return p.spirv }

// Destroyed reports whether Destroy was called.
func (p *Program) Destroyed() bool { return p.destroyed }

// Destroy marks the program released.
func (p *Program) Destroy() { p.destroyed = true }

// DrawRecord captures one executed draw.
type DrawRecord struct {
	Label    string
	Program  *Program
	Target   *RenderTarget // nil means the screen
	Uniforms []byte
	Textures []backend.Texture
}

// Backend is a CPU implementation of backend.Backend.
type Backend struct {
	screenFormat gputypes.TextureFormat
	screen       *RenderTarget
	compiler     shader.Compiler
	preproc      *shader.Preprocessor
	registry     *shader.Registry
	filter       xdraw.Interpolator
	logger       *slog.Logger

	draws    []DrawRecord
	clears   int
	compiled int
}

var (
	_ backend.Backend       = (*Backend)(nil)
	_ backend.Blitter       = (*Backend)(nil)
	_ backend.ScreenResizer = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithCompiler sets the shader compiler. A nil compiler only preprocesses.
func WithCompiler(c shader.Compiler) Option {
	return func(b *Backend) { b.compiler = c }
}

// WithRegistry sets the chunk registry used for #include.
func WithRegistry(r *shader.Registry) Option {
	return func(b *Backend) { b.registry = r }
}

// WithScreenFormat sets the screen texture format.
func WithScreenFormat(f gputypes.TextureFormat) Option {
	return func(b *Backend) { b.screenFormat = f }
}

// WithInterpolator sets the filter used by Blit and pass-through draws.
func WithInterpolator(i xdraw.Interpolator) Option {
	return func(b *Backend) { b.filter = i }
}

// New creates a headless backend with a 1x1 screen.
func New(opts ...Option) *Backend {
	b := &Backend{
		screenFormat: gputypes.TextureFormatRGBA8Unorm,
		compiler:     shader.NewNagaCompiler(),
		filter:       xdraw.BiLinear,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = shader.NewRegistry()
	}
	b.preproc = shader.NewPreprocessor(b.registry.Init())
	b.screen, _ = newRenderTarget(backend.RenderTargetDescriptor{
		Label:        "screen",
		Width:        1,
		Height:       1,
		ColorFormats: []gputypes.TextureFormat{b.screenFormat},
	})
	return b
}

// SetLogger sets the logger for backend diagnostics.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger = l
}

// Registry returns the chunk registry.
func (b *Backend) Registry() *shader.Registry { return b.registry }

// Screen returns the screen render target.
func (b *Backend) Screen() *RenderTarget { return b.screen }

// ScreenFormat returns the screen texture format.
func (b *Backend) ScreenFormat() gputypes.TextureFormat { return b.screenFormat }

// ResizeScreen resizes the screen target.
func (b *Backend) ResizeScreen(width, height int) error {
	return b.screen.Resize(width, height)
}

// CreateRenderTarget allocates a render target.
func (b *Backend) CreateRenderTarget(desc backend.RenderTargetDescriptor) (backend.RenderTarget, error) {
	rt, err := newRenderTarget(desc)
	if err != nil {
		return nil, fmt.Errorf("headless: create render target %q: %w", desc.Label, err)
	}
	return rt, nil
}

// CompileProgram preprocesses and compiles a program.
func (b *Backend) CompileProgram(desc backend.ProgramDescriptor) (backend.Program, error) {
	src, err := b.preproc.Process(desc.Source, desc.Defines)
	if err != nil {
		return nil, fmt.Errorf("headless: preprocess %q: %w", desc.Label, err)
	}

	p := &Program{
		label:    desc.Label,
		source:   src,
		textures: append([]backend.TextureSlot(nil), desc.Textures...),
		uniforms: desc.UniformSize,
	}
	if b.compiler != nil {
		p.spirv, err = b.compiler.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("headless: compile %q: %w", desc.Label, err)
		}
	}
	b.compiled++
	b.logger.Debug("headless: program compiled", "label", desc.Label, "words", len(p.spirv))
	return p, nil
}

// Draw validates and records a fullscreen draw.
func (b *Backend) Draw(call backend.DrawCall) error {
	p, ok := call.Program.(*Program)
	if !ok || p == nil {
		return fmt.Errorf("headless: draw %q: %w: foreign program %T", call.Label, backend.ErrUnsupported, call.Program)
	}
	if p.destroyed {
		return fmt.Errorf("headless: draw %q: program %q: %w", call.Label, p.label, backend.ErrDestroyed)
	}
	target, err := b.resolveTarget(call.Target)
	if err != nil {
		return fmt.Errorf("headless: draw %q: %w", call.Label, err)
	}
	if len(call.Textures) != len(p.textures) {
		return fmt.Errorf("headless: draw %q: %d textures bound, program %q expects %d",
			call.Label, len(call.Textures), p.label, len(p.textures))
	}
	if len(call.Uniforms) < p.uniforms {
		return fmt.Errorf("headless: draw %q: uniform block is %d bytes, program expects %d",
			call.Label, len(call.Uniforms), p.uniforms)
	}
	for i, tex := range call.Textures {
		t, ok := tex.(*Texture)
		if !ok || t == nil {
			return fmt.Errorf("headless: draw %q: texture %d: %w: %T", call.Label, i, backend.ErrUnsupported, tex)
		}
		if t.destroyed {
			return fmt.Errorf("headless: draw %q: texture %q: %w", call.Label, t.label, backend.ErrDestroyed)
		}
	}

	if len(call.Textures) > 0 {
		if src := call.Textures[0].(*Texture); src.rgba != nil {
			b.scaleInto(src, target)
		}
	}

	rec := DrawRecord{
		Label:    call.Label,
		Program:  p,
		Uniforms: append([]byte(nil), call.Uniforms...),
		Textures: append([]backend.Texture(nil), call.Textures...),
	}
	if call.Target != nil {
		rec.Target = target
	}
	b.draws = append(b.draws, rec)
	return nil
}

// Clear fills every color attachment of target.
func (b *Backend) Clear(target backend.RenderTarget, c gputypes.Color) error {
	rt, err := b.resolveTarget(target)
	if err != nil {
		return fmt.Errorf("headless: clear: %w", err)
	}
	fill := image.NewUniform(toRGBA(c))
	for _, tex := range rt.colors {
		img := tex.(*Texture).rgba
		xdraw.Draw(img, img.Bounds(), fill, image.Point{}, xdraw.Src)
	}
	b.clears++
	return nil
}

// Blit resamples src into the first color attachment of dst.
func (b *Backend) Blit(src backend.Texture, dst backend.RenderTarget) error {
	s, ok := src.(*Texture)
	if !ok || s == nil || s.rgba == nil {
		return fmt.Errorf("headless: blit: %w: source %T", backend.ErrUnsupported, src)
	}
	if s.destroyed {
		return fmt.Errorf("headless: blit: %w", backend.ErrDestroyed)
	}
	rt, err := b.resolveTarget(dst)
	if err != nil {
		return fmt.Errorf("headless: blit: %w", err)
	}
	b.scaleInto(s, rt)
	return nil
}

// Draws returns the recorded draws since the last ResetStats.
func (b *Backend) Draws() []DrawRecord { return b.draws }

// Clears returns the number of Clear calls since the last ResetStats.
func (b *Backend) Clears() int { return b.clears }

// Compiled returns the number of programs compiled so far.
func (b *Backend) Compiled() int { return b.compiled }

// ResetStats forgets recorded draws and clears.
func (b *Backend) ResetStats() {
	b.draws = nil
	b.clears = 0
}

// Destroy releases the screen.
func (b *Backend) Destroy() {
	b.screen.Destroy()
}

func (b *Backend) resolveTarget(t backend.RenderTarget) (*RenderTarget, error) {
	if t == nil {
		if b.screen.destroyed {
			return nil, backend.ErrNoScreen
		}
		return b.screen, nil
	}
	rt, ok := t.(*RenderTarget)
	if !ok || rt == nil {
		return nil, fmt.Errorf("%w: foreign render target %T", backend.ErrUnsupported, t)
	}
	if rt.destroyed {
		return nil, fmt.Errorf("render target %q: %w", rt.label, backend.ErrDestroyed)
	}
	return rt, nil
}

func (b *Backend) scaleInto(src *Texture, dst *RenderTarget) {
	if len(dst.colors) == 0 {
		return
	}
	d := dst.colors[0].(*Texture).rgba
	b.filter.Scale(d, d.Bounds(), src.rgba, src.rgba.Bounds(), xdraw.Src, nil)
}

func toRGBA(c gputypes.Color) color.RGBA {
	ch := func(v float64) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	// Premultiplied, as image.RGBA expects.
	a := ch(c.A)
	return color.RGBA{R: ch(c.R * c.A), G: ch(c.G * c.A), B: ch(c.B * c.A), A: a}
}
