package postfx

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
)

// Frame describes the frame being rendered.
type Frame struct {
	// Time is the time since the pipeline started.
	Time time.Duration

	// Delta is the time since the previous frame.
	Delta time.Duration

	// Index counts rendered frames starting at 0.
	Index uint64
}

// Pass is one unit of rendering work. Implementations embed *BasePass,
// which provides everything but Render.
type Pass interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)

	Input() *Input
	Output() *Output
	Subpasses() []Pass
	Resolution() *Resolution

	// SetSize sets the base size of the pass and every subpass. Render
	// targets are reallocated only when their size changes.
	SetSize(width, height int) error
	SetPixelRatio(ratio float64) error

	// Render draws one frame. Enabled subpasses are rendered by their
	// parent, not by the pipeline.
	Render(frame Frame) error

	Dispose()

	base() *BasePass
}

// Compilable is implemented by passes that can build their programs
// ahead of the first Render.
type Compilable interface {
	Compile(ctx context.Context) error
}

// GBufferProvider is implemented by passes that render the G-Buffer. The
// pipeline hands them the union of the components every pass requires.
type GBufferProvider interface {
	SetGBufferComponents(components []GBufferComponent) error
}

// RenderTargetSpec describes a render target a pass allocates once it has
// a backend.
type RenderTargetSpec struct {
	Label string

	// ColorFormats defaults to the color format of the input frame buffer
	// type when nil.
	ColorFormats []gputypes.TextureFormat

	DepthFormat gputypes.TextureFormat
}

// BasePass implements the bookkeeping shared by all passes.
type BasePass struct {
	name       string
	enabled    bool
	input      *Input
	output     *Output
	resolution *Resolution
	subpasses  []Pass

	backend        backend.Backend
	pipeline       *RenderPipeline
	parent         *BasePass
	renderToScreen bool
	disposed       bool

	targets     map[string]RenderTargetSpec
	targetNames []string
	attachHooks []func(backend.Backend) error
	disposers   []func()
}

// NewBasePass returns an enabled pass with empty input and output.
func NewBasePass(name string) *BasePass {
	p := &BasePass{
		name:       name,
		enabled:    true,
		input:      NewInput(),
		output:     NewOutput(),
		resolution: NewResolution(),
		targets:    make(map[string]RenderTargetSpec),
	}
	p.input.OnChange(func() {
		if err := p.reformatTargets(); err != nil {
			Logger().Warn("postfx: reallocate render targets", "pass", p.name, "err", err)
		}
	})
	return p
}

func (p *BasePass) base() *BasePass { return p }

// Name returns the pass name.
func (p *BasePass) Name() string { return p.name }

// Enabled reports whether the pass renders.
func (p *BasePass) Enabled() bool { return p.enabled }

// SetEnabled enables or disables the pass. Disabled passes are still
// resized.
func (p *BasePass) SetEnabled(enabled bool) { p.enabled = enabled }

// Input returns the resources the pass reads.
func (p *BasePass) Input() *Input { return p.input }

// Output returns the resources the pass writes.
func (p *BasePass) Output() *Output { return p.output }

// Resolution returns the pass resolution.
func (p *BasePass) Resolution() *Resolution { return p.resolution }

// Subpasses returns the nested passes.
func (p *BasePass) Subpasses() []Pass { return p.subpasses }

// AddSubpass nests sp. The subpass shares the backend of its parent and,
// when the parent is already attached, takes its size and the pipeline
// settings before its targets are allocated.
func (p *BasePass) AddSubpass(sp Pass) {
	b := sp.base()
	b.parent = p
	p.subpasses = append(p.subpasses, sp)
	if p.backend == nil {
		return
	}
	if p.pipeline != nil {
		p.pipeline.configure(sp)
	}
	w, h := p.resolution.BaseSize()
	if err := sp.SetPixelRatio(p.resolution.PixelRatio()); err != nil {
		Logger().Warn("postfx: resize subpass", "pass", b.name, "err", err)
	}
	if err := sp.SetSize(w, h); err != nil {
		Logger().Warn("postfx: resize subpass", "pass", b.name, "err", err)
	}
	if err := b.attach(p.pipeline, p.backend); err != nil {
		Logger().Warn("postfx: attach subpass", "pass", b.name, "err", err)
	}
}

// Backend returns the backend, or nil before the pass is added to a
// pipeline.
func (p *BasePass) Backend() backend.Backend { return p.backend }

// Pipeline returns the owning pipeline of the pass or its parent.
func (p *BasePass) Pipeline() *RenderPipeline { return p.pipeline }

// SetRenderToScreen makes the default render target resolve to the
// screen.
func (p *BasePass) SetRenderToScreen(v bool) { p.renderToScreen = v }

// RenderToScreen reports whether the pass draws to the screen.
func (p *BasePass) RenderToScreen() bool { return p.renderToScreen }

// OnAttach registers fn to run once the pass has a backend. Hooks
// registered after attachment run immediately.
func (p *BasePass) OnAttach(fn func(backend.Backend) error) {
	p.attachHooks = append(p.attachHooks, fn)
	if p.backend != nil {
		if err := fn(p.backend); err != nil {
			Logger().Warn("postfx: attach hook", "pass", p.name, "err", err)
		}
	}
}

// OnDispose registers fn to run on Dispose.
func (p *BasePass) OnDispose(fn func()) {
	p.disposers = append(p.disposers, fn)
}

// DeclareRenderTarget registers an owned render target on Output under
// name. It is allocated at the effective resolution when the pass gets a
// backend and follows every later resize.
func (p *BasePass) DeclareRenderTarget(name string, spec RenderTargetSpec) *RenderTargetResource {
	if _, ok := p.targets[name]; !ok {
		p.targetNames = append(p.targetNames, name)
	}
	p.targets[name] = spec
	res := p.output.RenderTarget(name)
	if res == nil || res.IsDisposed() {
		res = NewResource[backend.RenderTarget](nil)
		p.output.SetRenderTarget(name, res)
	}
	if p.backend != nil {
		if err := p.allocate(name); err != nil {
			Logger().Warn("postfx: allocate render target", "pass", p.name, "target", name, "err", err)
		}
	}
	return res
}

// Target returns the render target to draw into for name. The default
// target of a pass rendering to the screen is nil, which backends treat as
// the screen.
func (p *BasePass) Target(name string) backend.RenderTarget {
	if p.renderToScreen && name == BufferDefault {
		return nil
	}
	res := p.output.RenderTarget(name)
	if res == nil {
		return nil
	}
	return res.Value()
}

// Render does nothing. Concrete passes override it.
func (p *BasePass) Render(Frame) error { return nil }

// RenderSubpasses renders the enabled subpasses in order.
func (p *BasePass) RenderSubpasses(frame Frame) error {
	for _, sp := range p.subpasses {
		if !sp.Enabled() {
			continue
		}
		if err := sp.Render(frame); err != nil {
			return fmt.Errorf("subpass %q: %w", sp.Name(), err)
		}
	}
	return nil
}

// SetSize sets the base size of the pass resolution, resizes the owned
// render targets to the effective size and forwards to every subpass.
func (p *BasePass) SetSize(width, height int) error {
	p.resolution.SetBaseSize(width, height)
	if err := p.resizeTargets(); err != nil {
		return err
	}
	for _, sp := range p.subpasses {
		if err := sp.SetSize(width, height); err != nil {
			return err
		}
	}
	return nil
}

// SetPixelRatio sets the pixel ratio of the pass and every subpass.
func (p *BasePass) SetPixelRatio(ratio float64) error {
	p.resolution.SetPixelRatio(ratio)
	if err := p.resizeTargets(); err != nil {
		return err
	}
	for _, sp := range p.subpasses {
		if err := sp.SetPixelRatio(ratio); err != nil {
			return err
		}
	}
	return nil
}

// Flush delivers pending Input and Output notifications of the pass and
// its subpasses.
func (p *BasePass) Flush() {
	p.input.Flush()
	p.output.Flush()
	for _, sp := range p.subpasses {
		sp.base().Flush()
	}
}

// Dispose disposes the subpasses and the render targets declared by the
// pass. Calling Dispose more than once is a no-op.
func (p *BasePass) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	for _, sp := range p.subpasses {
		sp.Dispose()
	}
	for _, fn := range p.disposers {
		fn()
	}
	for _, name := range p.targetNames {
		if res := p.output.RenderTarget(name); res != nil {
			res.Dispose()
		}
	}
	p.pipeline = nil
}

// IsDisposed reports whether Dispose was called.
func (p *BasePass) IsDisposed() bool { return p.disposed }

func (p *BasePass) attach(pl *RenderPipeline, b backend.Backend) error {
	p.pipeline = pl
	p.backend = b
	for _, name := range p.targetNames {
		if err := p.allocate(name); err != nil {
			return err
		}
	}
	for _, fn := range p.attachHooks {
		if err := fn(b); err != nil {
			return err
		}
	}
	for _, sp := range p.subpasses {
		if err := sp.base().attach(pl, b); err != nil {
			return err
		}
	}
	return nil
}

func (p *BasePass) detach() {
	p.pipeline = nil
	for _, sp := range p.subpasses {
		sp.base().detach()
	}
}

func (p *BasePass) descriptor(name string) backend.RenderTargetDescriptor {
	spec := p.targets[name]
	formats := spec.ColorFormats
	if formats == nil {
		formats = []gputypes.TextureFormat{p.input.FrameBufferType().ColorFormat()}
	}
	label := spec.Label
	if label == "" {
		label = p.name + "." + name
	}
	w, h := p.resolution.EffectiveSize()
	return backend.RenderTargetDescriptor{
		Label:        label,
		Width:        max(w, 1),
		Height:       max(h, 1),
		ColorFormats: formats,
		DepthFormat:  spec.DepthFormat,
	}
}

func (p *BasePass) allocate(name string) error {
	res := p.output.RenderTarget(name)
	if res == nil || res.IsDisposed() {
		// Swept by a resource manager while the pass was detached.
		res = NewResource[backend.RenderTarget](nil)
		p.output.SetRenderTarget(name, res)
	} else if !isNil(res.Value()) {
		return nil
	}
	rt, err := p.backend.CreateRenderTarget(p.descriptor(name))
	if err != nil {
		return fmt.Errorf("postfx: pass %q: create render target %q: %w", p.name, name, err)
	}
	res.Set(rt)
	return nil
}

// reformatTargets reallocates default-format targets whose format no
// longer matches the input frame buffer type.
func (p *BasePass) reformatTargets() error {
	if p.backend == nil {
		return nil
	}
	want := p.input.FrameBufferType().ColorFormat()
	for _, name := range p.targetNames {
		if p.targets[name].ColorFormats != nil {
			continue
		}
		res := p.output.RenderTarget(name)
		if res == nil || res.IsDisposed() {
			continue
		}
		old := res.Value()
		if isNil(old) {
			continue
		}
		if colors := old.ColorAttachments(); len(colors) > 0 && colors[0].Format() == want {
			continue
		}
		rt, err := p.backend.CreateRenderTarget(p.descriptor(name))
		if err != nil {
			return err
		}
		res.Set(rt)
		old.Destroy()
	}
	return nil
}

func (p *BasePass) resizeTargets() error {
	w, h := p.resolution.EffectiveSize()
	return p.output.SetSize(max(w, 1), max(h, 1))
}
