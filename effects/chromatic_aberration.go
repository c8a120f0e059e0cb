package effects

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/postfx"
)

const chromaticAberrationFragment = `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	var shift = offset;
#ifdef RADIAL_MODULATION
	shift = shift * smoothstep(modulationOffset, 1.0, distance(uv, vec2<f32>(0.5)) * 2.0);
#endif
	let r = textureSample(inputBuffer, inputSampler, uv + shift).r;
	let b = textureSample(inputBuffer, inputSampler, uv - shift).b;
	return vec4<f32>(r, inputColor.g, b, inputColor.a);
}
`

// ChromaticAberration splits the red and blue channels apart.
type ChromaticAberration struct {
	postfx.BaseEffect
}

// NewChromaticAberration returns the effect with a uv-space offset. With
// radial modulation the shift grows from modulationOffset towards the
// image corners.
func NewChromaticAberration(offset mgl32.Vec2, radial bool, modulationOffset float32) *ChromaticAberration {
	defines := map[string]string{}
	if radial {
		defines["RADIAL_MODULATION"] = ""
	}
	e := &ChromaticAberration{}
	e.BaseEffect = postfx.NewBaseEffect("ChromaticAberration", chromaticAberrationFragment,
		postfx.WithAttributes(postfx.AttributeConvolution),
		postfx.WithUniforms(map[string]*postfx.Uniform{
			"offset":           postfx.NewUniform(offset),
			"modulationOffset": postfx.NewUniform(modulationOffset),
		}),
		postfx.WithDefines(defines),
		postfx.WithBlendMode(postfx.BlendSrc),
	)
	return e
}

// SetOffset sets the channel shift in uv units.
func (e *ChromaticAberration) SetOffset(v mgl32.Vec2) { e.SetUniform("offset", v) }
