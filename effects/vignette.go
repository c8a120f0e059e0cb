package effects

import "github.com/gogpu/postfx"

const vignetteFragment = `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	let coord = (uv - vec2<f32>(0.5)) * vec2<f32>(offset);
	let v = mix(inputColor.rgb, vec3<f32>(1.0 - darkness), dot(coord, coord));
	return vec4<f32>(v, inputColor.a);
}
`

// Vignette darkens the image towards its edges.
type Vignette struct {
	postfx.BaseEffect
}

// NewVignette returns a vignette with the given offset and darkness.
func NewVignette(offset, darkness float32) *Vignette {
	e := &Vignette{}
	e.BaseEffect = postfx.NewBaseEffect("Vignette", vignetteFragment,
		postfx.WithUniforms(map[string]*postfx.Uniform{
			"offset":   postfx.NewUniform(offset),
			"darkness": postfx.NewUniform(darkness),
		}),
	)
	return e
}

// Offset returns how far the vignette reaches into the image.
func (e *Vignette) Offset() float32 { return e.Uniforms()["offset"].Value.(float32) }

// SetOffset sets the vignette offset.
func (e *Vignette) SetOffset(v float32) { e.SetUniform("offset", v) }

// Darkness returns the edge darkness.
func (e *Vignette) Darkness() float32 { return e.Uniforms()["darkness"].Value.(float32) }

// SetDarkness sets the edge darkness.
func (e *Vignette) SetDarkness(v float32) { e.SetUniform("darkness", v) }
