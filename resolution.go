package postfx

import "math"

// AutoSize marks a preferred dimension that is derived from the other
// dimension and the base aspect ratio.
const AutoSize = -1

// Resolution derives a render size from a base size.
//
// Exactly one sizing strategy is active:
//   - both preferred dimensions set: the preferred size is used as is
//   - one preferred dimension set: the other follows the base aspect ratio
//   - no preferred dimension: the base size is multiplied by the scale
//
// The effective size is the logical size times the pixel ratio, floored.
type Resolution struct {
	baseWidth, baseHeight           int
	preferredWidth, preferredHeight int
	scale                           float64
	pixelRatio                      float64

	width, height                   int // logical
	effectiveWidth, effectiveHeight int

	listeners []func(*Resolution)
}

// NewResolution returns a resolution with a 1x1 base size, unit scale and
// pixel ratio, and automatic preferred size.
func NewResolution() *Resolution {
	r := &Resolution{
		baseWidth:       1,
		baseHeight:      1,
		preferredWidth:  AutoSize,
		preferredHeight: AutoSize,
		scale:           1,
		pixelRatio:      1,
	}
	r.update()
	return r
}

// OnChange registers fn to run whenever the logical or effective size
// changes.
func (r *Resolution) OnChange(fn func(*Resolution)) {
	r.listeners = append(r.listeners, fn)
}

// SetBaseSize sets the size the resolution is derived from.
func (r *Resolution) SetBaseSize(width, height int) {
	r.baseWidth, r.baseHeight = width, height
	r.update()
}

// BaseSize returns the base size.
func (r *Resolution) BaseSize() (width, height int) {
	return r.baseWidth, r.baseHeight
}

// SetPreferredSize sets both preferred dimensions. Either may be AutoSize.
// The scale is kept but has no effect while a dimension is explicit.
func (r *Resolution) SetPreferredSize(width, height int) {
	r.preferredWidth, r.preferredHeight = width, height
	r.update()
}

// SetPreferredWidth sets the preferred width.
func (r *Resolution) SetPreferredWidth(width int) {
	r.SetPreferredSize(width, r.preferredHeight)
}

// SetPreferredHeight sets the preferred height.
func (r *Resolution) SetPreferredHeight(height int) {
	r.SetPreferredSize(r.preferredWidth, height)
}

// PreferredSize returns the preferred size.
func (r *Resolution) PreferredSize() (width, height int) {
	return r.preferredWidth, r.preferredHeight
}

// SetScale sets the resolution scale and resets the preferred size to
// AutoSize on both axes.
func (r *Resolution) SetScale(scale float64) {
	r.scale = scale
	r.preferredWidth, r.preferredHeight = AutoSize, AutoSize
	r.update()
}

// Scale returns the resolution scale.
func (r *Resolution) Scale() float64 {
	return r.scale
}

// SetPixelRatio sets the device pixel ratio.
func (r *Resolution) SetPixelRatio(ratio float64) {
	r.pixelRatio = ratio
	r.update()
}

// PixelRatio returns the device pixel ratio.
func (r *Resolution) PixelRatio() float64 {
	return r.pixelRatio
}

// Size returns the logical size, before the pixel ratio is applied.
func (r *Resolution) Size() (width, height int) {
	return r.width, r.height
}

// EffectiveSize returns the size in device pixels.
func (r *Resolution) EffectiveSize() (width, height int) {
	return r.effectiveWidth, r.effectiveHeight
}

// Width returns the effective width.
func (r *Resolution) Width() int { return r.effectiveWidth }

// Height returns the effective height.
func (r *Resolution) Height() int { return r.effectiveHeight }

// CopyFrom copies every setting of other. Listeners are not copied.
func (r *Resolution) CopyFrom(other *Resolution) {
	r.baseWidth, r.baseHeight = other.baseWidth, other.baseHeight
	r.preferredWidth, r.preferredHeight = other.preferredWidth, other.preferredHeight
	r.scale = other.scale
	r.pixelRatio = other.pixelRatio
	r.update()
}

func (r *Resolution) aspect() float64 {
	if r.baseHeight == 0 {
		return 1
	}
	return float64(r.baseWidth) / float64(r.baseHeight)
}

func round(v float64) int {
	return int(math.Round(v))
}

func (r *Resolution) update() {
	var w, h int
	switch {
	case r.preferredWidth != AutoSize && r.preferredHeight != AutoSize:
		w, h = r.preferredWidth, r.preferredHeight
	case r.preferredWidth != AutoSize:
		w = r.preferredWidth
		h = round(float64(w) / r.aspect())
	case r.preferredHeight != AutoSize:
		h = r.preferredHeight
		w = round(float64(h) * r.aspect())
	default:
		w = round(float64(r.baseWidth) * r.scale)
		h = round(float64(r.baseHeight) * r.scale)
	}
	ew := int(math.Floor(float64(w) * r.pixelRatio))
	eh := int(math.Floor(float64(h) * r.pixelRatio))

	if w == r.width && h == r.height && ew == r.effectiveWidth && eh == r.effectiveHeight {
		return
	}
	r.width, r.height = w, h
	r.effectiveWidth, r.effectiveHeight = ew, eh
	for _, fn := range r.listeners {
		fn(r)
	}
}

// Viewport is a Resolution with an offset.
type Viewport struct {
	*Resolution
	offsetX, offsetY int
}

// NewViewport returns a viewport with zero offset.
func NewViewport() *Viewport {
	return &Viewport{Resolution: NewResolution()}
}

// SetOffset sets the offset in base coordinates.
func (v *Viewport) SetOffset(x, y int) {
	if x == v.offsetX && y == v.offsetY {
		return
	}
	v.offsetX, v.offsetY = x, y
	for _, fn := range v.listeners {
		fn(v.Resolution)
	}
}

// BaseOffset returns the offset in base coordinates.
func (v *Viewport) BaseOffset() (x, y int) {
	return v.offsetX, v.offsetY
}

// Offset returns the offset scaled from base to logical size and rounded.
func (v *Viewport) Offset() (x, y int) {
	sx, sy := 1.0, 1.0
	if v.baseWidth != 0 {
		sx = float64(v.width) / float64(v.baseWidth)
	}
	if v.baseHeight != 0 {
		sy = float64(v.height) / float64(v.baseHeight)
	}
	return round(float64(v.offsetX) * sx), round(float64(v.offsetY) * sy)
}

// EffectiveOffset returns the offset in device pixels.
func (v *Viewport) EffectiveOffset() (x, y int) {
	ox, oy := v.Offset()
	return int(math.Floor(float64(ox) * v.pixelRatio)), int(math.Floor(float64(oy) * v.pixelRatio))
}
