// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/shader"
	"github.com/gogpu/wgpu/hal"
)

var (
	// ErrNilProvider is returned when NewFromProvider gets a nil provider.
	ErrNilProvider = errors.New("wgpu: nil DeviceProvider")

	// ErrNoHAL is returned when a provider does not expose HAL objects.
	ErrNoHAL = errors.New("wgpu: provider does not expose hal.Device and hal.Queue")
)

const blitSource = `@group(0) @binding(0) var<uniform> uniforms: vec4<f32>;
@group(0) @binding(1) var inputSampler: sampler;
@group(0) @binding(2) var inputBuffer: texture_2d<f32>;

#include <fullscreen_vertex>

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
	return textureSample(inputBuffer, inputSampler, in.uv);
}
`

// halProvider is implemented by device providers that expose their HAL
// device and queue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// inflight holds per-submission objects until the GPU finishes with them.
type inflight struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
	buffer  hal.Buffer
	group   hal.BindGroup
}

// Backend executes fullscreen draws on a HAL device.
type Backend struct {
	device       hal.Device
	queue        hal.Queue
	screenFormat gputypes.TextureFormat
	screen       *RenderTarget
	sampler      hal.Sampler
	compiler     shader.Compiler
	preproc      *shader.Preprocessor
	registry     *shader.Registry
	logger       *slog.Logger

	blit     *Program
	inflight []inflight
	draws    int
	copies   int
}

var (
	_ backend.Backend       = (*Backend)(nil)
	_ backend.Blitter       = (*Backend)(nil)
	_ backend.ScreenResizer = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithCompiler sets a WGSL to SPIR-V compiler. Without one, shader modules
// are created from preprocessed WGSL.
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

// WithLogger sets the logger for backend diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a backend on device and queue with a 1x1 screen target.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("wgpu: %w: nil device or queue", backend.ErrUnsupported)
	}
	b := &Backend{
		device:       device,
		queue:        queue,
		screenFormat: gputypes.TextureFormatRGBA8Unorm,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = shader.NewRegistry()
	}
	b.preproc = shader.NewPreprocessor(b.registry.Init())

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "postfx_input_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}
	b.sampler = sampler

	b.screen, err = newRenderTarget(device, backend.RenderTargetDescriptor{
		Label:        "screen",
		Width:        1,
		Height:       1,
		ColorFormats: []gputypes.TextureFormat{b.screenFormat},
	})
	if err != nil {
		device.DestroySampler(sampler)
		return nil, fmt.Errorf("wgpu: create screen: %w", err)
	}
	return b, nil
}

// NewFromProvider creates a backend that shares the provider's device.
// The provider must expose HalDevice and HalQueue. Its surface format, if
// any, becomes the screen format unless an option overrides it.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		opts = append([]Option{WithScreenFormat(f)}, opts...)
	}
	return New(device, queue, opts...)
}

// SetLogger sets the logger for backend diagnostics.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	b.logger = l
}

// Device returns the HAL device.
func (b *Backend) Device() hal.Device { return b.device }

// Registry returns the chunk registry.
func (b *Backend) Registry() *shader.Registry { return b.registry }

// Screen returns the offscreen screen target.
func (b *Backend) Screen() *RenderTarget { return b.screen }

// ScreenFormat returns the screen texture format.
func (b *Backend) ScreenFormat() gputypes.TextureFormat { return b.screenFormat }

// ResizeScreen resizes the screen target.
func (b *Backend) ResizeScreen(width, height int) error {
	return b.screen.Resize(width, height)
}

// Draws returns the number of submitted draws.
func (b *Backend) Draws() int { return b.draws }

// Copies returns the number of blits served by a texture copy.
func (b *Backend) Copies() int { return b.copies }

// Pending returns the number of submissions not yet retired.
func (b *Backend) Pending() int { return len(b.inflight) }

// CreateRenderTarget allocates a render target.
func (b *Backend) CreateRenderTarget(desc backend.RenderTargetDescriptor) (backend.RenderTarget, error) {
	rt, err := newRenderTarget(b.device, desc)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create render target %q: %w", desc.Label, err)
	}
	return rt, nil
}

// CompileProgram preprocesses the source and creates the shader module.
func (b *Backend) CompileProgram(desc backend.ProgramDescriptor) (backend.Program, error) {
	src, err := b.preproc.Process(desc.Source, desc.Defines)
	if err != nil {
		return nil, fmt.Errorf("wgpu: preprocess %q: %w", desc.Label, err)
	}
	p := &Program{
		device:      b.device,
		label:       desc.Label,
		source:      src,
		textures:    append([]backend.TextureSlot(nil), desc.Textures...),
		declared:    desc.UniformSize,
		uniformSize: uniformBlockSize(desc.UniformSize),
	}
	if b.compiler != nil {
		p.spirv, err = b.compiler.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("wgpu: compile %q: %w", desc.Label, err)
		}
	}
	if err := p.createModule(); err != nil {
		p.Destroy()
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	b.logger.Debug("wgpu: program compiled", "label", desc.Label, "words", len(p.spirv))
	return p, nil
}

// Draw encodes and submits one fullscreen triangle.
func (b *Backend) Draw(call backend.DrawCall) error {
	p, ok := call.Program.(*Program)
	if !ok || p == nil {
		return fmt.Errorf("wgpu: draw %q: %w: foreign program %T", call.Label, backend.ErrUnsupported, call.Program)
	}
	if p.destroyed {
		return fmt.Errorf("wgpu: draw %q: program %q: %w", call.Label, p.label, backend.ErrDestroyed)
	}
	target, err := b.resolveTarget(call.Target)
	if err != nil {
		return fmt.Errorf("wgpu: draw %q: %w", call.Label, err)
	}
	if len(call.Textures) != len(p.textures) {
		return fmt.Errorf("wgpu: draw %q: %d textures bound, program %q expects %d",
			call.Label, len(call.Textures), p.label, len(p.textures))
	}
	if len(call.Uniforms) < p.declared {
		return fmt.Errorf("wgpu: draw %q: uniform block is %d bytes, program expects %d",
			call.Label, len(call.Uniforms), p.declared)
	}
	views := make([]hal.TextureView, len(call.Textures))
	for i, tex := range call.Textures {
		t, ok := tex.(*Texture)
		if !ok || t == nil {
			return fmt.Errorf("wgpu: draw %q: texture %d: %w: %T", call.Label, i, backend.ErrUnsupported, tex)
		}
		if t.destroyed {
			return fmt.Errorf("wgpu: draw %q: texture %q: %w", call.Label, t.label, backend.ErrDestroyed)
		}
		views[i] = t.view
	}
	if err := b.encodeDraw(call.Label, p, target, len(target.colors), call.Uniforms, views); err != nil {
		return fmt.Errorf("wgpu: draw %q: %w", call.Label, err)
	}
	return nil
}

// Clear clears every color attachment to c and the depth attachment to 1.
func (b *Backend) Clear(target backend.RenderTarget, c gputypes.Color) error {
	rt, err := b.resolveTarget(target)
	if err != nil {
		return fmt.Errorf("wgpu: clear: %w", err)
	}
	desc := &hal.RenderPassDescriptor{Label: rt.label + "_clear"}
	colors, _ := rt.colorViews()
	for _, v := range colors {
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       v,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: c,
		})
	}
	if rt.depth != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            rt.depth.view,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1,
		}
	}
	err = b.submit(desc.Label, inflight{}, func(enc hal.CommandEncoder) {
		enc.BeginRenderPass(desc).End()
	})
	if err != nil {
		return fmt.Errorf("wgpu: clear: %w", err)
	}
	return nil
}

// Blit copies src into the first color attachment of dst. Matching sizes
// and formats use a texture copy; anything else is resampled with a
// built-in program.
func (b *Backend) Blit(src backend.Texture, dst backend.RenderTarget) error {
	s, ok := src.(*Texture)
	if !ok || s == nil {
		return fmt.Errorf("wgpu: blit: %w: source %T", backend.ErrUnsupported, src)
	}
	if s.destroyed {
		return fmt.Errorf("wgpu: blit: %w", backend.ErrDestroyed)
	}
	rt, err := b.resolveTarget(dst)
	if err != nil {
		return fmt.Errorf("wgpu: blit: %w", err)
	}
	if len(rt.colors) == 0 {
		return nil
	}
	d := rt.colors[0].(*Texture)
	if d.width == s.width && d.height == s.height && d.format == s.format {
		err = b.submit("blit_copy", inflight{}, func(enc hal.CommandEncoder) {
			enc.CopyTextureToTexture(s.tex, d.tex, []hal.TextureCopy{{
				SrcBase: hal.ImageCopyTexture{Texture: s.tex, Aspect: gputypes.TextureAspectAll},
				DstBase: hal.ImageCopyTexture{Texture: d.tex, Aspect: gputypes.TextureAspectAll},
				Size:    hal.Extent3D{Width: uint32(s.width), Height: uint32(s.height), DepthOrArrayLayers: 1},
			}})
		})
		if err != nil {
			return fmt.Errorf("wgpu: blit: %w", err)
		}
		b.copies++
		return nil
	}

	if b.blit == nil {
		prog, err := b.CompileProgram(backend.ProgramDescriptor{
			Label:       "blit",
			Source:      blitSource,
			Textures:    []backend.TextureSlot{{Name: "inputBuffer"}},
			UniformSize: 16,
		})
		if err != nil {
			return fmt.Errorf("wgpu: blit: %w", err)
		}
		b.blit = prog.(*Program)
	}
	if err := b.encodeDraw("blit", b.blit, rt, 1, nil, []hal.TextureView{s.view}); err != nil {
		return fmt.Errorf("wgpu: blit: %w", err)
	}
	return nil
}

// Destroy waits for the device to go idle and releases everything the
// backend owns.
func (b *Backend) Destroy() {
	if err := b.device.WaitIdle(); err != nil {
		b.logger.Warn("wgpu: wait idle failed", "err", err)
	}
	b.retire(^uint64(0))
	if b.blit != nil {
		b.blit.Destroy()
		b.blit = nil
	}
	b.screen.Destroy()
	if b.sampler != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
}

// encodeDraw draws p into the first n color attachments of rt.
func (b *Backend) encodeDraw(label string, p *Program, rt *RenderTarget, n int, uniforms []byte, textures []hal.TextureView) error {
	views, _ := rt.colorViews()
	views = views[:n]
	formats := rt.formats[:n]
	pl, err := p.pipeline(formatKey(formats), formats)
	if err != nil {
		return err
	}

	data := make([]byte, p.uniformSize)
	copy(data, uniforms)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_uniforms",
		Size:  p.uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	if err := b.queue.WriteBuffer(buf, 0, data); err != nil {
		b.device.DestroyBuffer(buf)
		return fmt.Errorf("write uniform buffer: %w", err)
	}

	entries := []gputypes.BindGroupEntry{
		{
			Binding:  backend.BindingUniforms,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Size: p.uniformSize},
		},
		{
			Binding:  backend.BindingSampler,
			Resource: gputypes.SamplerBinding{Sampler: b.sampler.NativeHandle()},
		},
	}
	for i, v := range textures {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(backend.BindingFirstTexture + i),
			Resource: gputypes.TextureViewBinding{TextureView: v.NativeHandle()},
		})
	}
	group, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label + "_bind_group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		b.device.DestroyBuffer(buf)
		return fmt.Errorf("create bind group: %w", err)
	}

	desc := &hal.RenderPassDescriptor{Label: label}
	for _, v := range views {
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:    v,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		})
	}
	err = b.submit(label, inflight{buffer: buf, group: group}, func(enc hal.CommandEncoder) {
		rp := enc.BeginRenderPass(desc)
		rp.SetPipeline(pl)
		rp.SetBindGroup(0, group, nil)
		rp.SetViewport(0, 0, float32(rt.width), float32(rt.height), 0, 1)
		rp.Draw(3, 1, 0, 0)
		rp.End()
	})
	if err != nil {
		return err
	}
	b.draws++
	return nil
}

// submit records one command buffer and submits it. The objects in res
// are released once the submission completes; on failure they are
// released immediately.
func (b *Backend) submit(label string, res inflight, record func(hal.CommandEncoder)) error {
	b.retire(b.queue.PollCompleted())

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		b.release(res)
		return fmt.Errorf("create command encoder: %w", err)
	}
	res.encoder = encoder
	if err := encoder.BeginEncoding(label); err != nil {
		b.release(res)
		return fmt.Errorf("begin encoding: %w", err)
	}
	record(encoder)
	cmd, err := encoder.EndEncoding()
	if err != nil {
		b.release(res)
		return fmt.Errorf("end encoding: %w", err)
	}
	res.cmd = cmd
	res.index, err = b.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		b.release(res)
		return fmt.Errorf("submit: %w", err)
	}
	b.inflight = append(b.inflight, res)
	return nil
}

// retire releases every submission with an index up to done.
func (b *Backend) retire(done uint64) {
	kept := b.inflight[:0]
	for _, f := range b.inflight {
		if f.index <= done {
			b.release(f)
			continue
		}
		kept = append(kept, f)
	}
	clear(b.inflight[len(kept):])
	b.inflight = kept
}

func (b *Backend) release(f inflight) {
	if f.group != nil {
		b.device.DestroyBindGroup(f.group)
	}
	if f.buffer != nil {
		b.device.DestroyBuffer(f.buffer)
	}
	if f.cmd != nil {
		b.device.FreeCommandBuffer(f.cmd)
	}
	if f.encoder != nil {
		f.encoder.Destroy()
	}
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

// uniformBlockSize rounds n up to 16 bytes, with a 16 byte minimum.
func uniformBlockSize(n int) uint64 {
	if n < 16 {
		return 16
	}
	return uint64((n + 15) &^ 15)
}
