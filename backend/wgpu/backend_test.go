// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// countingDevice counts object lifetimes on top of the noop device.
type countingDevice struct {
	*noop.Device
	modules, pipelines, groups          int
	destroyedPipelines, destroyedGroups int
	destroyedModules                    int
}

func (d *countingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	d.modules++
	return d.Device.CreateShaderModule(desc)
}

func (d *countingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.destroyedModules++
	d.Device.DestroyShaderModule(m)
}

func (d *countingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.pipelines++
	return d.Device.CreateRenderPipeline(desc)
}

func (d *countingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.destroyedPipelines++
	d.Device.DestroyRenderPipeline(p)
}

func (d *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.groups++
	return d.Device.CreateBindGroup(desc)
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.destroyedGroups++
	d.Device.DestroyBindGroup(g)
}

// recordingQueue keeps the last buffer write.
type recordingQueue struct {
	*noop.Queue
	last []byte
}

func (q *recordingQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	q.last = append(q.last[:0], data...)
	return q.Queue.WriteBuffer(buf, offset, data)
}

type wordsCompiler struct{ calls int }

func (c *wordsCompiler) Compile(string) ([]uint32, error) {
	c.calls++
	return []uint32{0x07230203}, nil
}

type failCompiler struct{}

func (failCompiler) Compile(string) ([]uint32, error) { return nil, errors.New("syntax error") }

func newTestBackend(t *testing.T, opts ...Option) (*Backend, *countingDevice, *recordingQueue) {
	t.Helper()
	d := &countingDevice{Device: &noop.Device{}}
	q := &recordingQueue{Queue: &noop.Queue{}}
	b, err := New(d, q, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(b.Destroy)
	return b, d, q
}

func rgba(formats ...gputypes.TextureFormat) []gputypes.TextureFormat { return formats }

func TestCreateRenderTarget(t *testing.T) {
	b, _, _ := newTestBackend(t)

	tests := []struct {
		name    string
		desc    backend.RenderTargetDescriptor
		wantErr error
	}{
		{"single", backend.RenderTargetDescriptor{Width: 4, Height: 2,
			ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm)}, nil},
		{"gbuffer", backend.RenderTargetDescriptor{Width: 4, Height: 2,
			ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA16Float),
			DepthFormat:  gputypes.TextureFormatDepth24Plus}, nil},
		{"zero size", backend.RenderTargetDescriptor{Width: 0, Height: 2}, backend.ErrInvalidSize},
		{"depth as color", backend.RenderTargetDescriptor{Width: 1, Height: 1,
			ColorFormats: rgba(gputypes.TextureFormatDepth32Float)}, backend.ErrUnsupported},
		{"color as depth", backend.RenderTargetDescriptor{Width: 1, Height: 1,
			DepthFormat: gputypes.TextureFormatRGBA8Unorm}, backend.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := b.CreateRenderTarget(tt.desc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateRenderTarget error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer rt.Destroy()
			if got := len(rt.ColorAttachments()); got != len(tt.desc.ColorFormats) {
				t.Errorf("color attachments = %d, want %d", got, len(tt.desc.ColorFormats))
			}
			for i, c := range rt.ColorAttachments() {
				if c.Format() != tt.desc.ColorFormats[i] {
					t.Errorf("attachment %d format = %v, want %v", i, c.Format(), tt.desc.ColorFormats[i])
				}
			}
			hasDepth := rt.DepthAttachment() != nil
			if want := tt.desc.DepthFormat != gputypes.TextureFormatUndefined; hasDepth != want {
				t.Errorf("depth attachment present = %v, want %v", hasDepth, want)
			}
		})
	}
}

func TestRenderTargetResize(t *testing.T) {
	b, _, _ := newTestBackend(t)
	r, err := b.CreateRenderTarget(backend.RenderTargetDescriptor{
		Width: 4, Height: 4, ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm),
		DepthFormat: gputypes.TextureFormatDepth24Plus,
	})
	if err != nil {
		t.Fatal(err)
	}
	rt := r.(*RenderTarget)
	old := rt.ColorAttachments()[0].(*Texture)

	if err := rt.Resize(4, 4); err != nil {
		t.Fatal(err)
	}
	if rt.Allocations() != 1 {
		t.Errorf("Allocations() after same-size Resize = %d, want 1", rt.Allocations())
	}
	if err := rt.Resize(8, 2); err != nil {
		t.Fatal(err)
	}
	if rt.Allocations() != 2 || rt.Width() != 8 || rt.Height() != 2 {
		t.Errorf("after Resize(8, 2): allocations %d, size %dx%d", rt.Allocations(), rt.Width(), rt.Height())
	}
	if !old.Destroyed() {
		t.Error("previous attachment not destroyed by Resize")
	}
	if err := rt.Resize(0, 1); !errors.Is(err, backend.ErrInvalidSize) {
		t.Errorf("Resize(0, 1) error = %v, want ErrInvalidSize", err)
	}
	rt.Destroy()
	if err := rt.Resize(1, 1); !errors.Is(err, backend.ErrDestroyed) {
		t.Errorf("Resize after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestCompileProgram(t *testing.T) {
	c := &wordsCompiler{}
	b, d, _ := newTestBackend(t, WithCompiler(c))
	p, err := b.CompileProgram(backend.ProgramDescriptor{
		Label:   "test",
		Source:  "#include <fullscreen_vertex>\n#ifdef RED\nconst c = VALUE;\n#endif",
		Defines: map[string]string{"RED": "", "VALUE": "1.0"},
	})
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	prog := p.(*Program)
	if src := prog.Source(); !strings.Contains(src, "const c = 1.0;") || !strings.Contains(src, "fn vs_main") {
		t.Errorf("preprocessed source unexpected:\n%s", src)
	}
	if c.calls != 1 || len(prog.SPIRV()) != 1 {
		t.Errorf("compiler calls = %d, words = %d, want 1, 1", c.calls, len(prog.SPIRV()))
	}
	if d.modules != 1 || prog.Pipelines() != 0 {
		t.Errorf("modules = %d, pipelines = %d, want 1 module and lazy pipelines", d.modules, prog.Pipelines())
	}

	p.Destroy()
	if d.destroyedModules != 1 {
		t.Errorf("destroyed modules = %d, want 1", d.destroyedModules)
	}

	bad, _, _ := newTestBackend(t, WithCompiler(failCompiler{}))
	if _, err := bad.CompileProgram(backend.ProgramDescriptor{Label: "bad", Source: "x"}); err == nil {
		t.Error("CompileProgram with failing compiler succeeded")
	}
}

func TestCompileProgramWGSL(t *testing.T) {
	b, _, _ := newTestBackend(t)
	p, err := b.CompileProgram(backend.ProgramDescriptor{Label: "wgsl", Source: "#include <fullscreen_vertex>"})
	if err != nil {
		t.Fatal(err)
	}
	if p.(*Program).SPIRV() != nil {
		t.Error("SPIRV() without a compiler is non-nil")
	}
}

func TestDraw(t *testing.T) {
	b, d, q := newTestBackend(t, WithScreenFormat(gputypes.TextureFormatBGRA8Unorm))
	p, err := b.CompileProgram(backend.ProgramDescriptor{
		Label:       "p",
		Source:      "#include <fullscreen_vertex>",
		Textures:    []backend.TextureSlot{{Name: "inputBuffer"}, {Name: "depthBuffer", Depth: true}},
		UniformSize: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	prog := p.(*Program)
	src, _ := b.CreateRenderTarget(backend.RenderTargetDescriptor{
		Width: 2, Height: 2, ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm),
		DepthFormat: gputypes.TextureFormatDepth32Float,
	})
	dst, _ := b.CreateRenderTarget(backend.RenderTargetDescriptor{
		Width: 2, Height: 2, ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA16Float),
	})
	textures := []backend.Texture{src.ColorAttachments()[0], src.DepthAttachment()}

	uniforms := make([]byte, 20)
	binary.LittleEndian.PutUint32(uniforms[16:], math.Float32bits(2.5))
	for range 2 {
		if err := b.Draw(backend.DrawCall{Label: "fx", Program: p, Target: dst, Uniforms: uniforms, Textures: textures}); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	if prog.Pipelines() != 1 {
		t.Errorf("pipelines after two draws to one target = %d, want 1", prog.Pipelines())
	}
	if len(q.last) != 32 || math.Float32frombits(binary.LittleEndian.Uint32(q.last[16:])) != 2.5 {
		t.Errorf("uniform upload = %v, want 32 bytes carrying 2.5 at offset 16", q.last)
	}

	if err := b.Draw(backend.DrawCall{Label: "screen", Program: p, Uniforms: uniforms, Textures: textures}); err != nil {
		t.Fatalf("Draw to screen: %v", err)
	}
	if prog.Pipelines() != 2 || d.pipelines != 2 {
		t.Errorf("pipelines after screen draw = %d (device %d), want 2", prog.Pipelines(), d.pipelines)
	}
	if b.Draws() != 3 || d.groups != 3 {
		t.Errorf("draws = %d, bind groups = %d, want 3, 3", b.Draws(), d.groups)
	}

	tests := []struct {
		name string
		call backend.DrawCall
		want error
	}{
		{"missing texture", backend.DrawCall{Program: p, Uniforms: uniforms, Textures: textures[:1]}, nil},
		{"short uniforms", backend.DrawCall{Program: p, Uniforms: uniforms[:8], Textures: textures}, nil},
		{"foreign program", backend.DrawCall{Uniforms: uniforms, Textures: textures}, backend.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Draw(tt.call)
			if err == nil {
				t.Fatal("Draw succeeded")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Draw error = %v, want %v", err, tt.want)
			}
		})
	}

	p.Destroy()
	if d.destroyedPipelines != 2 {
		t.Errorf("destroyed pipelines = %d, want 2", d.destroyedPipelines)
	}
	if err := b.Draw(backend.DrawCall{Program: p, Uniforms: uniforms, Textures: textures}); !errors.Is(err, backend.ErrDestroyed) {
		t.Errorf("Draw with destroyed program error = %v, want ErrDestroyed", err)
	}
}

func TestSubmissionsRetire(t *testing.T) {
	d := &countingDevice{Device: &noop.Device{}}
	b, err := New(d, &noop.Queue{})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := b.CompileProgram(backend.ProgramDescriptor{Label: "p", Source: "x"})
	for range 3 {
		if err := b.Draw(backend.DrawCall{Program: p, Uniforms: make([]byte, 16)}); err != nil {
			t.Fatal(err)
		}
	}
	// Completed submissions are released on the next submit.
	if b.Pending() != 1 || d.destroyedGroups != 2 {
		t.Errorf("pending = %d, destroyed groups = %d, want 1, 2", b.Pending(), d.destroyedGroups)
	}
	b.Destroy()
	if b.Pending() != 0 || d.destroyedGroups != 3 {
		t.Errorf("after Destroy: pending = %d, destroyed groups = %d, want 0, 3", b.Pending(), d.destroyedGroups)
	}
}

func TestClearAndBlit(t *testing.T) {
	b, _, _ := newTestBackend(t)
	if err := b.ResizeScreen(4, 4); err != nil {
		t.Fatal(err)
	}
	same, _ := b.CreateRenderTarget(backend.RenderTargetDescriptor{
		Width: 4, Height: 4, ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm),
		DepthFormat: gputypes.TextureFormatDepth24Plus,
	})
	small, _ := b.CreateRenderTarget(backend.RenderTargetDescriptor{
		Width: 2, Height: 2, ColorFormats: rgba(gputypes.TextureFormatRGBA8Unorm),
	})

	if err := b.Clear(same, gputypes.Color{R: 1, A: 1}); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := b.Blit(same.ColorAttachments()[0], nil); err != nil {
		t.Fatalf("Blit same size: %v", err)
	}
	if b.Copies() != 1 || b.Draws() != 0 {
		t.Errorf("same-size blit: copies %d, draws %d, want 1, 0", b.Copies(), b.Draws())
	}
	if err := b.Blit(small.ColorAttachments()[0], nil); err != nil {
		t.Fatalf("Blit resample: %v", err)
	}
	if b.Copies() != 1 || b.Draws() != 1 {
		t.Errorf("resampling blit: copies %d, draws %d, want 1, 1", b.Copies(), b.Draws())
	}

	small.Destroy()
	if err := b.Clear(small, gputypes.Color{}); !errors.Is(err, backend.ErrDestroyed) {
		t.Errorf("Clear destroyed target error = %v, want ErrDestroyed", err)
	}
}

type fakeProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *fakeProvider) Device() gpucontext.Device             { return p.device }
func (p *fakeProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *fakeProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *fakeProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *fakeProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

type halFakeProvider struct{ fakeProvider }

func (p *halFakeProvider) HalDevice() any { return p.device }
func (p *halFakeProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNilProvider) {
		t.Errorf("NewFromProvider(nil) error = %v, want ErrNilProvider", err)
	}
	plain := &fakeProvider{device: &noop.Device{}, queue: &noop.Queue{}}
	if _, err := NewFromProvider(plain); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider without HAL access error = %v, want ErrNoHAL", err)
	}

	hp := &halFakeProvider{fakeProvider{device: &noop.Device{}, queue: &noop.Queue{}, format: gputypes.TextureFormatBGRA8Unorm}}
	b, err := NewFromProvider(hp)
	if err != nil {
		t.Fatalf("NewFromProvider: %v", err)
	}
	defer b.Destroy()
	if b.ScreenFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("ScreenFormat() = %v, want BGRA8Unorm", b.ScreenFormat())
	}

	b2, err := NewFromProvider(hp, WithScreenFormat(gputypes.TextureFormatRGBA16Float))
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Destroy()
	if b2.ScreenFormat() != gputypes.TextureFormatRGBA16Float {
		t.Errorf("ScreenFormat() with override = %v, want RGBA16Float", b2.ScreenFormat())
	}
}
