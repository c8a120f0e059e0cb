package passes

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/backend/headless"
)

func TestGeometryPassDefaultLayout(t *testing.T) {
	geo := NewGeometryPass(nil)
	want := []postfx.GBufferComponent{postfx.GBufferColor, postfx.GBufferDepth}
	if got := geo.Components(); !slices.Equal(got, want) {
		t.Errorf("Components() = %v, want %v", got, want)
	}
	if got, _ := geo.Output().Define("LOCATION_COLOR"); got != "0" {
		t.Errorf("LOCATION_COLOR = %q, want 0", got)
	}
}

func TestGeometryPassFollowsRequirements(t *testing.T) {
	b := newHeadless()
	var infos []*postfx.GBufferInfo
	geo := NewGeometryPass(sceneFunc(func(_ backend.Backend, target backend.RenderTarget, info *postfx.GBufferInfo, _ postfx.Frame) error {
		if len(target.ColorAttachments()) != info.ColorCount() {
			t.Errorf("target has %d attachments, info %d", len(target.ColorAttachments()), info.ColorCount())
		}
		infos = append(infos, info)
		return nil
	}))
	view := NewGBufferViewPass(postfx.GDataNormal, geo.Output())
	pl := newPipeline(t, b, 16, 8, geo, view)
	defer pl.Dispose()

	want := []postfx.GBufferComponent{postfx.GBufferColor, postfx.GBufferDepth, postfx.GBufferNormal}
	if got := geo.Components(); !slices.Equal(got, want) {
		t.Fatalf("Components() = %v, want %v", got, want)
	}
	if got, _ := geo.Output().Define("LOCATION_NORMAL"); got != "1" {
		t.Errorf("LOCATION_NORMAL = %q, want 1", got)
	}
	normal := geo.Output().Buffer(postfx.GBufferNormal.BufferName())
	if normal == nil || normal.Value() == nil {
		t.Fatal("normal buffer not published")
	}
	if geo.Output().Buffer(postfx.BufferDepth) == nil {
		t.Error("depth buffer not published")
	}

	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("scene rendered %d times, want 1", len(infos))
	}
	if loc, ok := infos[0].Location(postfx.GBufferNormal); !ok || loc != 1 {
		t.Errorf("Location(NORMAL) = %d, %v, want 1, true", loc, ok)
	}
	draws := b.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	if draws[0].Textures[0] != normal.Value() {
		t.Error("view did not sample the normal attachment")
	}
	if !strings.Contains(draws[0].Program.Source(), "fn readGData") {
		t.Error("view program lacks readGData")
	}

	if err := pl.SetSize(32, 16); err != nil {
		t.Fatal(err)
	}
	if w := normal.Value().Width(); w != 32 {
		t.Errorf("normal width after resize = %d, want 32", w)
	}

	pl.Remove(view)
	want = []postfx.GBufferComponent{postfx.GBufferColor, postfx.GBufferDepth}
	if got := geo.Components(); !slices.Equal(got, want) {
		t.Errorf("Components() after Remove = %v, want %v", got, want)
	}
	if geo.Output().Buffer(postfx.GBufferNormal.BufferName()) != nil {
		t.Error("normal buffer still published after Remove")
	}
	if _, ok := geo.Output().Define("LOCATION_NORMAL"); ok {
		t.Error("LOCATION_NORMAL still defined after Remove")
	}
	view.Dispose()
}

func TestGeometryPassBlitsToScreen(t *testing.T) {
	b := newHeadless()
	geo := NewGeometryPass(nil)
	pl := newPipeline(t, b, 4, 4, geo)
	defer pl.Dispose()

	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	if b.Clears() != 1 {
		t.Errorf("Clears() = %d, want 1", b.Clears())
	}
	if !geo.RenderToScreen() {
		t.Error("RenderToScreen() = false for the last pass")
	}
}

func TestGeometryPassSceneError(t *testing.T) {
	errScene := errors.New("scene")
	geo := NewGeometryPass(sceneFunc(func(backend.Backend, backend.RenderTarget, *postfx.GBufferInfo, postfx.Frame) error {
		return errScene
	}))
	pl := newPipeline(t, newHeadless(), 4, 4, geo)
	defer pl.Dispose()

	if err := pl.Render(0); !errors.Is(err, errScene) {
		t.Errorf("Render() error = %v, want scene error", err)
	}
}

func TestGBufferViewDepth(t *testing.T) {
	b := newHeadless()
	geo := NewGeometryPass(nil)
	view := NewGBufferViewPass(postfx.GDataDepth, geo.Output())
	pl := newPipeline(t, b, 8, 8, geo, view)
	defer pl.Dispose()

	if err := pl.Render(0); err != nil {
		t.Fatal(err)
	}
	draws := b.Draws()
	if len(draws) != 1 {
		t.Fatalf("len(Draws()) = %d, want 1", len(draws))
	}
	src := draws[0].Program.Source()
	for _, want := range []string{"texture_depth_2d", "linearizeDepth", "data.depth"} {
		if !strings.Contains(src, want) {
			t.Errorf("view source lacks %q", want)
		}
	}
	tex := draws[0].Textures[0].(*headless.Texture)
	if !tex.Format().HasDepth() {
		t.Errorf("bound texture format = %v, want depth", tex.Format())
	}
}

func TestGBufferViewSetField(t *testing.T) {
	view := NewGBufferViewPass(postfx.GDataNormal, nil)
	if got := view.Input().GBuffer(); !slices.Equal(got, []postfx.GBufferComponent{postfx.GBufferNormal}) {
		t.Errorf("GBuffer() = %v, want [NORMAL]", got)
	}
	view.SetField(postfx.GDataPosition)
	if view.Field() != postfx.GDataPosition {
		t.Errorf("Field() = %v, want position", view.Field())
	}
	if got := view.Input().GBuffer(); !slices.Equal(got, []postfx.GBufferComponent{postfx.GBufferDepth}) {
		t.Errorf("GBuffer() = %v, want [DEPTH]", got)
	}
}

func TestGBufferViewMissingBuffer(t *testing.T) {
	view := NewGBufferViewPass(postfx.GDataNormal, nil)
	pl := newPipeline(t, newHeadless(), 8, 8, view)
	defer pl.Dispose()

	if err := pl.Render(0); !errors.Is(err, postfx.ErrMissingBuffer) {
		t.Errorf("Render() error = %v, want ErrMissingBuffer", err)
	}
}
