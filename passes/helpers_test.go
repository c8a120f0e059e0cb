package passes

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/backend/headless"
)

func newHeadless() *headless.Backend {
	return headless.New(headless.WithCompiler(nil))
}

// noBlit hides the Blitter implementation of the wrapped backend.
type noBlit struct {
	backend.Backend
}

type sceneFunc func(b backend.Backend, target backend.RenderTarget, info *postfx.GBufferInfo, frame postfx.Frame) error

func (f sceneFunc) RenderScene(b backend.Backend, target backend.RenderTarget, info *postfx.GBufferInfo, frame postfx.Frame) error {
	return f(b, target, info, frame)
}

func newPipeline(t *testing.T, b backend.Backend, w, h int, passes ...postfx.Pass) *postfx.RenderPipeline {
	t.Helper()
	pl := postfx.NewRenderPipeline(b)
	if err := pl.SetSize(w, h); err != nil {
		t.Fatal(err)
	}
	if err := pl.Add(passes...); err != nil {
		t.Fatal(err)
	}
	return pl
}

// readVec2 decodes the vec2<f32> field called name from a packed block.
func readVec2(t *testing.T, p *program, buf []byte, name string) [2]float32 {
	t.Helper()
	f, ok := p.shader.Uniforms.Field(name)
	if !ok {
		t.Fatalf("no uniform %q", name)
	}
	return [2]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(buf[f.Offset:])),
		math.Float32frombits(binary.LittleEndian.Uint32(buf[f.Offset+4:])),
	}
}
