package passes

import (
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
)

// SceneRenderer draws a scene into the G-Buffer. info tells which color
// location holds each component.
type SceneRenderer interface {
	RenderScene(b backend.Backend, target backend.RenderTarget, info *postfx.GBufferInfo, frame postfx.Frame) error
}

// GeometryPass renders the scene into a multi-attachment G-Buffer.
//
// The color attachment is published as BufferDefault, depth as
// BufferDepth and every other component under its BufferName. The
// components follow what the passes of the pipeline require; color and
// depth are always present.
type GeometryPass struct {
	*postfx.BasePass

	scene      SceneRenderer
	clearColor gputypes.Color
	components []postfx.GBufferComponent
	info       *postfx.GBufferInfo
	buffers    map[postfx.GBufferComponent]*postfx.TextureResource
}

var _ postfx.GBufferProvider = (*GeometryPass)(nil)

// NewGeometryPass returns a pass drawing scene. A nil scene only clears.
func NewGeometryPass(scene SceneRenderer) *GeometryPass {
	p := &GeometryPass{
		BasePass:   postfx.NewBasePass("GeometryPass"),
		scene:      scene,
		clearColor: gputypes.ColorBlack,
		buffers:    make(map[postfx.GBufferComponent]*postfx.TextureResource),
	}
	p.OnAttach(func(backend.Backend) error { p.publishAttachments(); return nil })
	if err := p.SetGBufferComponents(nil); err != nil {
		postfx.Logger().Warn("passes: default g-buffer layout", "err", err)
	}
	if res := p.Output().DefaultRenderTarget(); res != nil {
		res.OnChange(func(backend.RenderTarget) { p.publishAttachments() })
	}
	return p
}

// SetClearColor sets the color the G-Buffer is cleared to before the
// scene is drawn.
func (p *GeometryPass) SetClearColor(c gputypes.Color) { p.clearColor = c }

// Info returns the attachment layout.
func (p *GeometryPass) Info() *postfx.GBufferInfo { return p.info }

// Components returns the allocated components in ascending order.
func (p *GeometryPass) Components() []postfx.GBufferComponent {
	return slices.Clone(p.components)
}

func (p *GeometryPass) config() *postfx.GBufferConfig {
	if cfg := p.Input().GBufferConfig(); cfg != nil {
		return cfg
	}
	return postfx.NewGBufferConfig()
}

// SetGBufferComponents changes the G-Buffer layout. The render target is
// reallocated when the set of components changes.
func (p *GeometryPass) SetGBufferComponents(components []postfx.GBufferComponent) error {
	want := append([]postfx.GBufferComponent{postfx.GBufferColor, postfx.GBufferDepth}, components...)
	slices.Sort(want)
	want = slices.Compact(want)
	if p.info != nil && slices.Equal(want, p.components) {
		return nil
	}

	w, h := p.Resolution().EffectiveSize()
	desc, info, err := p.config().Layout(want, max(w, 1), max(h, 1))
	if err != nil {
		return err
	}
	p.components = want
	p.info = info

	res := p.DeclareRenderTarget(postfx.BufferDefault, postfx.RenderTargetSpec{
		Label:        p.Name(),
		ColorFormats: desc.ColorFormats,
		DepthFormat:  desc.DepthFormat,
	})
	// Replace in place so holders of the published buffers stay wired.
	if b := p.Backend(); b != nil {
		if old := res.Value(); old != nil {
			desc.Label = p.Name()
			rt, err := b.CreateRenderTarget(desc)
			if err != nil {
				return err
			}
			res.Set(rt)
			old.Destroy()
		}
	}
	defines := info.Defines()
	for name := range p.Output().Defines() {
		if _, ok := defines[name]; !ok && strings.HasPrefix(name, "LOCATION_") {
			p.Output().DeleteDefine(name)
		}
	}
	for name, v := range defines {
		p.Output().SetDefine(name, v)
	}
	p.publishAttachments()
	return nil
}

// SetSize resizes the G-Buffer and republishes its attachments.
func (p *GeometryPass) SetSize(width, height int) error {
	if err := p.BasePass.SetSize(width, height); err != nil {
		return err
	}
	p.publishAttachments()
	return nil
}

// SetPixelRatio resizes the G-Buffer and republishes its attachments.
func (p *GeometryPass) SetPixelRatio(ratio float64) error {
	if err := p.BasePass.SetPixelRatio(ratio); err != nil {
		return err
	}
	p.publishAttachments()
	return nil
}

// publishAttachments exposes the color attachments past location 0.
func (p *GeometryPass) publishAttachments() {
	var colors []backend.Texture
	if res := p.Output().DefaultRenderTarget(); res != nil {
		if rt := res.Value(); rt != nil {
			colors = rt.ColorAttachments()
		}
	}
	for c, r := range p.buffers {
		if !p.info.Has(c) {
			p.Output().DeleteBuffer(c.BufferName())
			r.Dispose()
			delete(p.buffers, c)
		}
	}
	for _, c := range p.info.Attachments() {
		loc, _ := p.info.Location(c)
		if loc == 0 {
			continue
		}
		var tex backend.Texture
		if loc < len(colors) {
			tex = colors[loc]
		}
		if r, ok := p.buffers[c]; ok {
			if r.Value() != tex {
				r.Set(tex)
			}
			continue
		}
		r := postfx.NewBorrowedResource(tex)
		p.buffers[c] = r
		p.Output().SetBuffer(c.BufferName(), r)
	}
}

// Render clears the G-Buffer and draws the scene. When the pass renders
// to the screen the color attachment is blitted there afterwards.
func (p *GeometryPass) Render(frame postfx.Frame) error {
	b := p.Backend()
	if b == nil {
		return postfx.ErrNoBackend
	}
	res := p.Output().DefaultRenderTarget()
	if res == nil || res.Value() == nil {
		return postfx.ErrMissingBuffer
	}
	target := res.Value()
	if err := b.Clear(target, p.clearColor); err != nil {
		return err
	}
	if p.scene != nil {
		if err := p.scene.RenderScene(b, target, p.info, frame); err != nil {
			return err
		}
	}
	if p.RenderToScreen() {
		if blitter, ok := b.(backend.Blitter); ok {
			return blitter.Blit(target.ColorAttachments()[0], nil)
		}
	}
	return nil
}
