package headless

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Texture is a CPU image standing in for a GPU texture.
type Texture struct {
	label     string
	format    gputypes.TextureFormat
	rgba      *image.RGBA
	depth     *image.Gray16
	destroyed bool
}

func newTexture(label string, w, h int, format gputypes.TextureFormat) *Texture {
	t := &Texture{label: label, format: format}
	r := image.Rect(0, 0, w, h)
	if isDepthFormat(format) {
		t.depth = image.NewGray16(r)
	} else {
		t.rgba = image.NewRGBA(r)
	}
	return t
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.bounds().Dx() }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.bounds().Dy() }

// Format returns the texture format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Image returns the backing image. Depth textures return *image.Gray16.
func (t *Texture) Image() image.Image {
	if t.depth != nil {
		return t.depth
	}
	return t.rgba
}

// Destroyed reports whether Destroy was called.
func (t *Texture) Destroyed() bool { return t.destroyed }

// Destroy releases the pixel buffer.
func (t *Texture) Destroy() {
	t.destroyed = true
	t.rgba = nil
	t.depth = nil
}

func (t *Texture) bounds() image.Rectangle {
	switch {
	case t.rgba != nil:
		return t.rgba.Bounds()
	case t.depth != nil:
		return t.depth.Bounds()
	}
	return image.Rectangle{}
}

func isDepthFormat(f gputypes.TextureFormat) bool {
	return f.HasDepth()
}
