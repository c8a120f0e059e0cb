package postfx

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/backend/headless"
)

func newSource(t *testing.T, b *headless.Backend) *TextureResource {
	t.Helper()
	rt := newTarget(t, b, 8, 8, true)
	return NewBorrowedResource(rt.ColorAttachments()[0])
}

func TestEffectPassRender(t *testing.T) {
	b := newHeadless()
	a := newTint("A", false)
	opt := newTint("B", true)
	pass, err := NewEffectPass(a, opt)
	if err != nil {
		t.Fatal(err)
	}
	pass.Input().SetDefaultBuffer(newSource(t, b))

	pl := NewRenderPipeline(b)
	if err := pl.Add(pass); err != nil {
		t.Fatal(err)
	}
	if err := pl.SetSize(16, 8); err != nil {
		t.Fatal(err)
	}
	if err := pl.Compile(context.Background()); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := pl.Render(1500 * time.Millisecond); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	draws := b.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	d := draws[0]
	if d.Target != nil {
		t.Error("last pass did not draw to the screen")
	}
	src := d.Program.Source()
	for _, e := range []Effect{a, opt} {
		if !strings.Contains(src, EffectPrefix(e.ID())+"mainImage(color, uv, depth)") {
			t.Errorf("program missing %s", e.Name())
		}
	}
	if strings.Contains(src, "#include") {
		t.Error("includes left after preprocessing")
	}

	// resolution is the second builtin, at offset 8.
	w := math.Float32frombits(binary.LittleEndian.Uint32(d.Uniforms[8:]))
	h := math.Float32frombits(binary.LittleEndian.Uint32(d.Uniforms[12:]))
	if w != 16 || h != 8 {
		t.Errorf("resolution uniform = %vx%v, want 16x8", w, h)
	}
	tm := math.Float32frombits(binary.LittleEndian.Uint32(d.Uniforms[24:]))
	if tm != 1.5 {
		t.Errorf("time uniform = %v, want 1.5", tm)
	}
}

func TestEffectPassToggleOptional(t *testing.T) {
	b := newHeadless()
	opt := newTint("opt", true)
	pass, err := NewEffectPass(newTint("base", false), opt)
	if err != nil {
		t.Fatal(err)
	}
	pass.Input().SetDefaultBuffer(newSource(t, b))
	pl := NewRenderPipeline(b)
	_ = pl.Add(pass)

	for _, enabled := range []bool{true, false, true, false} {
		opt.SetEnabled(enabled)
		if err := pl.Render(0); err != nil {
			t.Fatal(err)
		}
	}
	if got := b.Compiled(); got != 2 {
		t.Errorf("compiled %d programs, want 2", got)
	}
	if pass.Materials().CacheLen() != 2 {
		t.Errorf("CacheLen() = %d, want 2", pass.Materials().CacheLen())
	}
}

func TestEffectPassDepth(t *testing.T) {
	b := newHeadless()
	fog := newTestEffect("fog", `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	return inputColor * depth;
}`, WithAttributes(AttributeDepth))
	pass, err := NewEffectPass(fog)
	if err != nil {
		t.Fatal(err)
	}
	if g := pass.Input().GBuffer(); len(g) != 1 || g[0] != GBufferDepth {
		t.Errorf("GBuffer() = %v, want [DEPTH]", g)
	}

	pl := NewRenderPipeline(b)
	_ = pl.Add(pass)
	pass.Input().SetDefaultBuffer(newSource(t, b))
	if err := pl.Render(0); !errors.Is(err, ErrMissingBuffer) {
		t.Fatalf("Render() without depth error = %v, want ErrMissingBuffer", err)
	}

	rt := newTarget(t, b, 8, 8, true)
	pass.Input().SetBuffer(BufferDepth, NewBorrowedResource(rt.DepthAttachment()))
	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	d := b.Draws()[len(b.Draws())-1]
	if len(d.Textures) != 2 || d.Textures[1] != rt.DepthAttachment() {
		t.Errorf("textures = %v, want input and depth", d.Textures)
	}
}

func TestEffectPassHighPrecisionDefine(t *testing.T) {
	b := newHeadless()
	pass, err := NewEffectPass(newTint("a", false))
	if err != nil {
		t.Fatal(err)
	}
	pass.Input().SetDefaultBuffer(newSource(t, b))
	pl := NewRenderPipeline(b, WithFrameBufferType(FrameBufferHalfFloat))
	_ = pl.Add(pass)
	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	mat, err := pass.Materials().Material()
	if err != nil {
		t.Fatal(err)
	}
	if mat.Shader.Defines[DefineHighPrecision] != "1" {
		t.Errorf("defines = %v, want %s", mat.Shader.Defines, DefineHighPrecision)
	}
}

func TestEffectPassChained(t *testing.T) {
	b := newHeadless()
	first, _ := NewEffectPass(newTint("a", false))
	second, _ := NewEffectPass(newTint("b", false))
	first.Input().SetDefaultBuffer(newSource(t, b))
	second.Input().SetDefaultBuffer(first.Output().DefaultBuffer())

	pl := NewRenderPipeline(b)
	if err := pl.Add(first, second); err != nil {
		t.Fatal(err)
	}
	if err := pl.SetSize(4, 4); err != nil {
		t.Fatal(err)
	}
	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	draws := b.Draws()
	if len(draws) != 2 {
		t.Fatalf("len(Draws()) = %d, want 2", len(draws))
	}
	var firstOut backend.Texture = first.Output().DefaultRenderTarget().Value().ColorAttachments()[0]
	if draws[0].Target == nil || draws[1].Target != nil {
		t.Error("targets: want offscreen then screen")
	}
	if draws[1].Textures[0] != firstOut {
		t.Error("second pass did not read the output of the first")
	}
}

func TestEffectPassConvolutionConflict(t *testing.T) {
	a := newTestEffect("a", tintFragment, WithAttributes(AttributeConvolution))
	c := newTestEffect("c", tintFragment, WithAttributes(AttributeConvolution))
	if _, err := NewEffectPass(a, c); !errors.Is(err, ErrConvolutionConflict) {
		t.Errorf("NewEffectPass() error = %v, want ErrConvolutionConflict", err)
	}
}

// attrEffect reports attributes that may change after construction.
type attrEffect struct {
	*testEffect
	attrs EffectAttribute
}

func (e *attrEffect) Attributes() EffectAttribute { return e.attrs }

func TestEffectPassMaterialOptionsError(t *testing.T) {
	a := newTestEffect("a", tintFragment, WithAttributes(AttributeConvolution))
	c := &attrEffect{testEffect: newTint("c", false)}
	pass, err := NewEffectPass(a, c)
	if err != nil {
		t.Fatal(err)
	}
	c.attrs = AttributeConvolution

	pl := NewRenderPipeline(newHeadless(), WithMaterialOptions(WithFallbackCacheSize(2)))
	if err := pl.Add(pass); !errors.Is(err, ErrConvolutionConflict) {
		t.Errorf("Add() error = %v, want ErrConvolutionConflict", err)
	}
}

func TestEffectPassWithoutBackend(t *testing.T) {
	pass, _ := NewEffectPass(newTint("a", false))
	if err := pass.Render(Frame{}); !errors.Is(err, ErrNoBackend) {
		t.Errorf("Render() error = %v, want ErrNoBackend", err)
	}
	if err := pass.Compile(context.Background()); !errors.Is(err, ErrNoBackend) {
		t.Errorf("Compile() error = %v, want ErrNoBackend", err)
	}
}
