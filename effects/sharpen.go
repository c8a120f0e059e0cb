package effects

import "github.com/gogpu/postfx"

const sharpenFragment = `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	let t = uniforms.texelSize;
	let n = textureSample(inputBuffer, inputSampler, uv + vec2<f32>(0.0, t.y)).rgb;
	let s = textureSample(inputBuffer, inputSampler, uv - vec2<f32>(0.0, t.y)).rgb;
	let e = textureSample(inputBuffer, inputSampler, uv + vec2<f32>(t.x, 0.0)).rgb;
	let w = textureSample(inputBuffer, inputSampler, uv - vec2<f32>(t.x, 0.0)).rgb;
	let c = textureSample(inputBuffer, inputSampler, uv).rgb;
	let edge = 4.0 * c - n - s - e - w;
	return vec4<f32>(inputColor.rgb + edge * amount, inputColor.a);
}
`

// Sharpen enhances edges with a 3x3 cross Laplacian of the input buffer.
type Sharpen struct {
	postfx.BaseEffect
}

// NewSharpen returns the effect with the given strength.
func NewSharpen(amount float32) *Sharpen {
	e := &Sharpen{}
	e.BaseEffect = postfx.NewBaseEffect("Sharpen", sharpenFragment,
		postfx.WithAttributes(postfx.AttributeConvolution),
		postfx.WithUniforms(map[string]*postfx.Uniform{
			"amount": postfx.NewUniform(amount),
		}),
		postfx.WithBlendMode(postfx.BlendSrc),
	)
	return e
}

// SetAmount sets the sharpening strength.
func (e *Sharpen) SetAmount(v float32) { e.SetUniform("amount", v) }
