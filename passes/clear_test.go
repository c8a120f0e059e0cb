package passes

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend/headless"
)

func screenPixel(b *headless.Backend) color.Color {
	tex := b.Screen().ColorAttachments()[0].(*headless.Texture)
	return tex.Image().At(0, 0)
}

func TestClearPassToScreen(t *testing.T) {
	b := newHeadless()
	cl := NewClearPass(gputypes.ColorRed)
	pl := newPipeline(t, b, 8, 4, cl)
	defer pl.Dispose()

	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	if b.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1", b.Clears())
	}
	want := color.RGBA{R: 255, A: 255}
	if got := screenPixel(b); got != want {
		t.Errorf("screen pixel = %v, want %v", got, want)
	}

	cl.SetColor(gputypes.ColorBlue)
	if cl.Color() != gputypes.ColorBlue {
		t.Errorf("Color() = %v, want blue", cl.Color())
	}
}

func TestCopyPassBlit(t *testing.T) {
	b := newHeadless()
	cl := NewClearPass(gputypes.ColorGreen)
	cp := NewCopyPass()
	cp.Input().SetDefaultBuffer(cl.Output().DefaultBuffer())
	pl := newPipeline(t, b, 8, 4, cl, cp)
	defer pl.Dispose()

	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	if n := len(b.Draws()); n != 0 {
		t.Errorf("len(Draws()) = %d, want 0 with a blitting backend", n)
	}
	want := color.RGBA{G: 255, A: 255}
	if got := screenPixel(b); got != want {
		t.Errorf("screen pixel = %v, want %v", got, want)
	}
}

func TestCopyPassProgram(t *testing.T) {
	hb := newHeadless()
	cl := NewClearPass(gputypes.ColorGreen)
	cp := NewCopyPass()
	cp.Input().SetDefaultBuffer(cl.Output().DefaultBuffer())
	pl := newPipeline(t, noBlit{hb}, 8, 4, cl, cp)
	defer pl.Dispose()

	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	draws := hb.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	if draws[0].Target != nil {
		t.Errorf("copy target = %v, want screen", draws[0].Target)
	}
	if draws[0].Textures[0] != cl.Output().DefaultBuffer().Value() {
		t.Error("copy did not sample the clear output")
	}
}

func TestCopyPassMissingInput(t *testing.T) {
	cp := NewCopyPass()
	pl := newPipeline(t, newHeadless(), 8, 4, cp)
	defer pl.Dispose()

	if err := pl.Render(0); !errors.Is(err, postfx.ErrMissingBuffer) {
		t.Errorf("Render() error = %v, want ErrMissingBuffer", err)
	}
}
