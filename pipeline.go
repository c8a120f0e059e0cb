package postfx

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/postfx/backend"
)

// RenderPipeline renders an ordered list of passes.
//
// Passes are not wired automatically: connect each pass Input to the
// Output of the pass before it. The pipeline owns the lifecycle of its
// passes, sizes them, and hands the G-Buffer requirements of all passes
// to the passes that produce it.
type RenderPipeline struct {
	backend   backend.Backend
	passes    []Pass
	resources *ResourceManager

	autoRenderToScreen bool
	frameBufferType    FrameBufferType
	gBufferConfig      *GBufferConfig
	materialOptions    []MaterialManagerOption

	resolution                      *Resolution
	preferredWidth, preferredHeight int
	hasPreferred                    bool

	gBuffer       []GBufferComponent
	gBufferSynced bool
	compileErr    error
	compiled      bool
	disposed      bool

	frames   uint64
	lastTime time.Duration
}

// NewRenderPipeline returns an empty pipeline drawing with b.
func NewRenderPipeline(b backend.Backend, opts ...PipelineOption) *RenderPipeline {
	pl := &RenderPipeline{
		backend:            b,
		autoRenderToScreen: true,
		resolution:         NewResolution(),
	}
	for _, opt := range opts {
		opt(pl)
	}
	if pl.gBufferConfig == nil {
		pl.gBufferConfig = NewGBufferConfig()
	}
	if pl.resources != nil {
		pl.resources.Add(pl)
	}
	attachLogger(b)
	return pl
}

// Backend returns the backend.
func (pl *RenderPipeline) Backend() backend.Backend { return pl.backend }

// Passes returns the top-level passes in render order.
func (pl *RenderPipeline) Passes() []Pass { return slices.Clone(pl.passes) }

// GBufferConfig returns the config handed to pass inputs.
func (pl *RenderPipeline) GBufferConfig() *GBufferConfig { return pl.gBufferConfig }

// Compiled reports whether the last Compile succeeded.
func (pl *RenderPipeline) Compiled() bool { return pl.compiled }

// Add appends passes. Nil passes and passes that already belong to a
// pipeline are rejected and nothing is added.
func (pl *RenderPipeline) Add(passes ...Pass) error {
	if pl.disposed {
		return ErrPipelineDisposed
	}
	seen := make(map[Pass]bool, len(passes))
	for _, p := range passes {
		if isNil(p) {
			return ErrNilPass
		}
		if seen[p] || p.base().pipeline != nil || slices.Contains(pl.passes, p) {
			return fmt.Errorf("%w: %q", ErrPassOwned, p.Name())
		}
		seen[p] = true
	}

	w, h := pl.resolution.BaseSize()
	for _, p := range passes {
		pl.configure(p)
		if err := p.SetPixelRatio(pl.resolution.PixelRatio()); err != nil {
			return err
		}
		if err := p.SetSize(w, h); err != nil {
			return err
		}
		if err := p.base().attach(pl, pl.backend); err != nil {
			return err
		}
		pl.passes = append(pl.passes, p)
	}
	pl.compiled = false
	pl.gBufferSynced = false
	if err := pl.syncGBuffer(); err != nil {
		return err
	}
	pl.updateScreenTarget()
	pl.flush()
	return nil
}

// configure applies pipeline-wide settings to p and its subpasses.
func (pl *RenderPipeline) configure(p Pass) {
	p.Input().SetFrameBufferType(pl.frameBufferType)
	if p.Input().GBufferConfig() == nil {
		p.Input().SetGBufferConfig(pl.gBufferConfig)
	}
	if pl.hasPreferred {
		p.Resolution().SetPreferredSize(pl.preferredWidth, pl.preferredHeight)
	}
	for _, sp := range p.Subpasses() {
		pl.configure(sp)
	}
}

// Remove takes p out of the pipeline without disposing it.
func (pl *RenderPipeline) Remove(p Pass) bool {
	i := slices.Index(pl.passes, p)
	if i < 0 {
		return false
	}
	pl.passes = slices.Delete(pl.passes, i, i+1)
	p.base().detach()
	p.base().SetRenderToScreen(false)
	pl.updateScreenTarget()
	if err := pl.syncGBuffer(); err != nil {
		Logger().Warn("postfx: update g-buffer", "err", err)
	}
	return true
}

// Compile builds the programs of every pass and subpass implementing
// Compilable. On failure the pipeline is not compiled and Render returns
// ErrNotCompiled until a later Compile succeeds.
func (pl *RenderPipeline) Compile(ctx context.Context) error {
	if pl.disposed {
		return ErrPipelineDisposed
	}
	pl.compiled = false
	pl.flush()
	err := pl.walk(func(p Pass) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, ok := p.(Compilable)
		if !ok {
			return nil
		}
		if err := c.Compile(ctx); err != nil {
			return fmt.Errorf("postfx: compile pass %q: %w", p.Name(), err)
		}
		return nil
	})
	if err != nil {
		pl.compileErr = err
		return err
	}
	pl.compileErr = nil
	pl.compiled = true
	Logger().Info("postfx: pipeline compiled", "passes", len(pl.passes))
	return nil
}

// Render draws one frame. Enabled passes render in order; the first error
// is returned wrapped with the pass name.
func (pl *RenderPipeline) Render(t time.Duration) error {
	if pl.disposed {
		return ErrPipelineDisposed
	}
	if pl.compileErr != nil {
		return fmt.Errorf("%w: %w", ErrNotCompiled, pl.compileErr)
	}
	if err := pl.syncGBuffer(); err != nil {
		return err
	}
	pl.updateScreenTarget()
	pl.flush()

	frame := Frame{Time: t, Index: pl.frames}
	if pl.frames > 0 {
		frame.Delta = t - pl.lastTime
	}
	pl.frames++
	pl.lastTime = t

	for _, p := range pl.passes {
		if !p.Enabled() {
			continue
		}
		if err := p.Render(frame); err != nil {
			return fmt.Errorf("postfx: pass %q: %w", p.Name(), err)
		}
	}
	return nil
}

// SetSize resizes the screen and every pass.
func (pl *RenderPipeline) SetSize(width, height int) error {
	if pl.disposed {
		return ErrPipelineDisposed
	}
	pl.resolution.SetBaseSize(width, height)
	if err := pl.resizeScreen(); err != nil {
		return err
	}
	for _, p := range pl.passes {
		if err := p.SetSize(width, height); err != nil {
			return fmt.Errorf("postfx: resize pass %q: %w", p.Name(), err)
		}
	}
	return nil
}

// Size returns the base size.
func (pl *RenderPipeline) Size() (width, height int) {
	return pl.resolution.BaseSize()
}

// SetPixelRatio sets the pixel ratio of the screen and every pass.
func (pl *RenderPipeline) SetPixelRatio(ratio float64) error {
	if pl.disposed {
		return ErrPipelineDisposed
	}
	pl.resolution.SetPixelRatio(ratio)
	if err := pl.resizeScreen(); err != nil {
		return err
	}
	for _, p := range pl.passes {
		if err := p.SetPixelRatio(ratio); err != nil {
			return fmt.Errorf("postfx: resize pass %q: %w", p.Name(), err)
		}
	}
	return nil
}

func (pl *RenderPipeline) resizeScreen() error {
	r, ok := pl.backend.(backend.ScreenResizer)
	if !ok {
		return nil
	}
	w, h := pl.resolution.EffectiveSize()
	return r.ResizeScreen(max(w, 1), max(h, 1))
}

// Dispose disposes every pass, unregisters from the resource manager and
// reclaims unreferenced resources. The backend is left to the caller.
func (pl *RenderPipeline) Dispose() {
	if pl.disposed {
		return
	}
	if pl.resources != nil {
		pl.resources.Remove(pl)
	}
	for _, p := range pl.passes {
		p.Dispose()
	}
	pl.passes = nil
	pl.disposed = true
	if pl.resources != nil {
		pl.resources.Optimize()
	}
	detachLogger(pl.backend)
}

// IsDisposed reports whether Dispose was called.
func (pl *RenderPipeline) IsDisposed() bool { return pl.disposed }

// walk visits every pass depth first, parents before subpasses.
func (pl *RenderPipeline) walk(fn func(Pass) error) error {
	var visit func(p Pass) error
	visit = func(p Pass) error {
		if err := fn(p); err != nil {
			return err
		}
		for _, sp := range p.Subpasses() {
			if err := visit(sp); err != nil {
				return err
			}
		}
		return nil
	}
	for _, p := range pl.passes {
		if err := visit(p); err != nil {
			return err
		}
	}
	return nil
}

// visitResources calls fn for every buffer and render target reachable
// from the pipeline.
func (pl *RenderPipeline) visitResources(fn func(Disposable)) {
	_ = pl.walk(func(p Pass) error {
		in, out := p.Input(), p.Output()
		for _, name := range in.BufferNames() {
			fn(in.Buffer(name))
		}
		for _, name := range out.BufferNames() {
			fn(out.Buffer(name))
		}
		for _, name := range out.RenderTargetNames() {
			fn(out.RenderTarget(name))
		}
		return nil
	})
}

func (pl *RenderPipeline) flush() {
	for _, p := range pl.passes {
		p.base().Flush()
	}
}

// updateScreenTarget makes the last enabled pass draw to the screen.
func (pl *RenderPipeline) updateScreenTarget() {
	last := -1
	if pl.autoRenderToScreen {
		for i, p := range pl.passes {
			if p.Enabled() {
				last = i
			}
		}
	}
	for i, p := range pl.passes {
		p.base().SetRenderToScreen(i == last)
	}
}

// syncGBuffer hands the union of G-Buffer requirements to every provider.
func (pl *RenderPipeline) syncGBuffer() error {
	set := make(map[GBufferComponent]struct{})
	var providers []GBufferProvider
	_ = pl.walk(func(p Pass) error {
		for _, c := range p.Input().GBuffer() {
			set[c] = struct{}{}
		}
		if gp, ok := p.(GBufferProvider); ok {
			providers = append(providers, gp)
		}
		return nil
	})
	union := make([]GBufferComponent, 0, len(set))
	for c := range set {
		union = append(union, c)
	}
	slices.Sort(union)
	if pl.gBufferSynced && slices.Equal(union, pl.gBuffer) {
		return nil
	}
	pl.gBuffer = union
	pl.gBufferSynced = true
	for _, gp := range providers {
		if err := gp.SetGBufferComponents(union); err != nil {
			return fmt.Errorf("postfx: g-buffer: %w", err)
		}
	}
	return nil
}
