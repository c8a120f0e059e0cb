package effects

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/postfx"
)

const pixelationFragment = `fn mainUv(uv: vec2<f32>) -> vec2<f32> {
	if (granularity.x <= 0.0) {
		return uv;
	}
	let d = granularity / uniforms.resolution;
	return d * (floor(uv / d) + vec2<f32>(0.5));
}
`

// Pixelation snaps texture coordinates to a coarse grid. It only
// contributes mainUv, so effects after it see the pixelated image.
type Pixelation struct {
	postfx.BaseEffect
}

// NewPixelation returns the effect with cells of granularity pixels.
func NewPixelation(granularity float32) *Pixelation {
	e := &Pixelation{}
	e.BaseEffect = postfx.NewBaseEffect("Pixelation", pixelationFragment,
		postfx.WithUniforms(map[string]*postfx.Uniform{
			"granularity": postfx.NewUniform(mgl32.Vec2{granularity, granularity}),
		}),
	)
	return e
}

// Granularity returns the cell size in pixels.
func (e *Pixelation) Granularity() float32 {
	return e.Uniforms()["granularity"].Value.(mgl32.Vec2)[0]
}

// SetGranularity sets the cell size in pixels. Zero disables the effect
// without rebuilding the program.
func (e *Pixelation) SetGranularity(v float32) {
	e.SetUniform("granularity", mgl32.Vec2{v, v})
}
