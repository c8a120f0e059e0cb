package postfx

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/postfx/backend"
)

// Well-known buffer names.
const (
	// BufferDefault is the main texture of passes with a single primary
	// input or output.
	BufferDefault = "default"

	// BufferDepth holds the scene depth texture.
	BufferDepth = "depth"
)

// depthBufferName returns the key under which the depth attachment of the
// render target called name is published.
func depthBufferName(name string) string {
	if name == BufferDefault {
		return BufferDepth
	}
	return name + "_depth"
}

// bindings is the state shared by Input and Output. Mutations mark it
// dirty; Flush delivers one coalesced notification.
type bindings struct {
	buffers   map[string]*TextureResource
	uniforms  map[string]*Uniform
	defines   map[string]string
	dirty     bool
	listeners []func()
}

func newBindings() bindings {
	return bindings{
		buffers:  make(map[string]*TextureResource),
		uniforms: make(map[string]*Uniform),
		defines:  make(map[string]string),
	}
}

func (b *bindings) markDirty() { b.dirty = true }

// Buffer returns the buffer registered under name, or nil.
func (b *bindings) Buffer(name string) *TextureResource {
	return b.buffers[name]
}

// DefaultBuffer returns the BufferDefault entry.
func (b *bindings) DefaultBuffer() *TextureResource {
	return b.buffers[BufferDefault]
}

// SetBuffer registers r under name. A nil r removes the entry.
func (b *bindings) SetBuffer(name string, r *TextureResource) {
	if r == nil {
		b.DeleteBuffer(name)
		return
	}
	if b.buffers[name] == r {
		return
	}
	b.buffers[name] = r
	b.markDirty()
}

// SetDefaultBuffer registers r under BufferDefault.
func (b *bindings) SetDefaultBuffer(r *TextureResource) {
	b.SetBuffer(BufferDefault, r)
}

// DeleteBuffer removes the entry. Missing keys are ignored.
func (b *bindings) DeleteBuffer(name string) {
	if _, ok := b.buffers[name]; ok {
		delete(b.buffers, name)
		b.markDirty()
	}
}

// BufferNames returns the registered buffer names in sorted order.
func (b *bindings) BufferNames() []string {
	return slices.Sorted(maps.Keys(b.buffers))
}

// Uniform returns the uniform registered under name, or nil.
func (b *bindings) Uniform(name string) *Uniform {
	return b.uniforms[name]
}

// SetUniform registers u under name. A nil u removes the entry.
func (b *bindings) SetUniform(name string, u *Uniform) {
	if u == nil {
		b.DeleteUniform(name)
		return
	}
	if b.uniforms[name] == u {
		return
	}
	b.uniforms[name] = u
	b.markDirty()
}

// DeleteUniform removes the entry. Missing keys are ignored.
func (b *bindings) DeleteUniform(name string) {
	if _, ok := b.uniforms[name]; ok {
		delete(b.uniforms, name)
		b.markDirty()
	}
}

// Define returns the value of a define.
func (b *bindings) Define(name string) (string, bool) {
	v, ok := b.defines[name]
	return v, ok
}

// SetDefine sets a define. Setting the current value changes nothing.
func (b *bindings) SetDefine(name, value string) {
	if v, ok := b.defines[name]; ok && v == value {
		return
	}
	b.defines[name] = value
	b.markDirty()
}

// DeleteDefine removes a define. Missing keys are ignored.
func (b *bindings) DeleteDefine(name string) {
	if _, ok := b.defines[name]; ok {
		delete(b.defines, name)
		b.markDirty()
	}
}

// Defines returns a copy of the defines.
func (b *bindings) Defines() map[string]string {
	return maps.Clone(b.defines)
}

// OnChange registers fn to run on Flush when anything changed.
func (b *bindings) OnChange(fn func()) {
	b.listeners = append(b.listeners, fn)
}

// Dirty reports whether there are unflushed changes.
func (b *bindings) Dirty() bool {
	return b.dirty
}

// Flush notifies listeners once if anything changed since the last Flush.
// It reports whether listeners ran.
func (b *bindings) Flush() bool {
	if !b.dirty {
		return false
	}
	b.dirty = false
	for _, fn := range b.listeners {
		fn()
	}
	return true
}

// Input holds the resources a pass reads.
type Input struct {
	bindings
	gBuffer         map[GBufferComponent]struct{}
	gBufferConfig   *GBufferConfig
	frameBufferType FrameBufferType
}

// NewInput returns an empty Input.
func NewInput() *Input {
	return &Input{
		bindings: newBindings(),
		gBuffer:  make(map[GBufferComponent]struct{}),
	}
}

// RequireGBuffer adds components the pass needs from the G-Buffer.
func (in *Input) RequireGBuffer(components ...GBufferComponent) {
	for _, c := range components {
		if _, ok := in.gBuffer[c]; !ok {
			in.gBuffer[c] = struct{}{}
			in.markDirty()
		}
	}
}

// ReleaseGBuffer removes components from the requirements.
func (in *Input) ReleaseGBuffer(components ...GBufferComponent) {
	for _, c := range components {
		if _, ok := in.gBuffer[c]; ok {
			delete(in.gBuffer, c)
			in.markDirty()
		}
	}
}

// GBuffer returns the required components in ascending order.
func (in *Input) GBuffer() []GBufferComponent {
	return slices.Sorted(maps.Keys(in.gBuffer))
}

// SetGBufferConfig sets the config used to interpret G-Buffer components.
func (in *Input) SetGBufferConfig(cfg *GBufferConfig) {
	if in.gBufferConfig == cfg {
		return
	}
	in.gBufferConfig = cfg
	in.markDirty()
}

// GBufferConfig returns the config, or nil if none was set.
func (in *Input) GBufferConfig() *GBufferConfig {
	return in.gBufferConfig
}

// FrameBufferType returns the precision of the incoming buffers.
func (in *Input) FrameBufferType() FrameBufferType {
	return in.frameBufferType
}

// SetFrameBufferType sets the precision of the incoming buffers.
func (in *Input) SetFrameBufferType(t FrameBufferType) {
	if in.frameBufferType == t {
		return
	}
	in.frameBufferType = t
	in.markDirty()
}

// Output holds the resources a pass writes. Render targets registered on an
// Output publish their attachments as buffers so downstream inputs can
// share them.
type Output struct {
	bindings
	renderTargets map[string]*RenderTargetResource
}

// NewOutput returns an empty Output.
func NewOutput() *Output {
	return &Output{
		bindings:      newBindings(),
		renderTargets: make(map[string]*RenderTargetResource),
	}
}

// RenderTarget returns the render target registered under name, or nil.
func (out *Output) RenderTarget(name string) *RenderTargetResource {
	return out.renderTargets[name]
}

// DefaultRenderTarget returns the BufferDefault render target.
func (out *Output) DefaultRenderTarget() *RenderTargetResource {
	return out.renderTargets[BufferDefault]
}

// RenderTargetNames returns the registered render target names in sorted
// order.
func (out *Output) RenderTargetNames() []string {
	return slices.Sorted(maps.Keys(out.renderTargets))
}

// SetRenderTarget registers rt under name and publishes its first color
// attachment as buffer name and its depth attachment, if any, as the
// matching depth buffer. The published buffers follow later changes of rt.
func (out *Output) SetRenderTarget(name string, rt *RenderTargetResource) {
	if rt == nil {
		out.DeleteRenderTarget(name)
		return
	}
	if out.renderTargets[name] == rt {
		return
	}
	out.renderTargets[name] = rt
	rt.OnChange(func(backend.RenderTarget) {
		if out.renderTargets[name] == rt {
			out.publish(name)
		}
	})
	out.publish(name)
	out.markDirty()
}

// DeleteRenderTarget removes the render target and its published buffers.
func (out *Output) DeleteRenderTarget(name string) {
	if _, ok := out.renderTargets[name]; !ok {
		return
	}
	delete(out.renderTargets, name)
	out.DeleteBuffer(name)
	out.DeleteBuffer(depthBufferName(name))
	out.markDirty()
}

// SetSize resizes every render target and refreshes published buffers.
func (out *Output) SetSize(width, height int) error {
	for _, name := range out.RenderTargetNames() {
		rt := out.renderTargets[name].Value()
		if isNil(rt) {
			continue
		}
		if err := rt.Resize(width, height); err != nil {
			return fmt.Errorf("postfx: resize render target %q: %w", name, err)
		}
		out.publish(name)
	}
	return nil
}

// publish updates the buffers exposing the attachments of render target
// name. Existing buffer resources are updated in place so consumers keep
// their references.
func (out *Output) publish(name string) {
	var color, depth backend.Texture
	if rt := out.renderTargets[name].Value(); !isNil(rt) {
		if colors := rt.ColorAttachments(); len(colors) > 0 {
			color = colors[0]
		}
		depth = rt.DepthAttachment()
	}
	out.publishTexture(name, color)
	if depth != nil {
		out.publishTexture(depthBufferName(name), depth)
	} else {
		out.DeleteBuffer(depthBufferName(name))
	}
}

func (out *Output) publishTexture(name string, tex backend.Texture) {
	if buf := out.buffers[name]; buf != nil && !buf.IsDisposed() {
		if buf.Value() != tex {
			buf.Set(tex)
		}
		return
	}
	out.SetBuffer(name, NewBorrowedResource(tex))
}
