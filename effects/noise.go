package effects

import "github.com/gogpu/postfx"

const noiseFragment = `fn rand(co: vec2<f32>) -> f32 {
	return fract(sin(dot(co, vec2<f32>(12.9898, 78.233))) * 43758.5453);
}

fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	let n = vec3<f32>(rand(uv * (1.0 + fract(uniforms.time))));
#ifdef PREMULTIPLY
	return vec4<f32>(min(inputColor.rgb * n, vec3<f32>(1.0)), inputColor.a);
#else
	return vec4<f32>(n, inputColor.a);
#endif
}
`

// Noise adds animated film grain. It is optional and blends additively
// by default.
type Noise struct {
	postfx.BaseEffect
}

// NewNoise returns a noise effect at opacity. With premultiply the noise
// is multiplied with the input color before blending.
func NewNoise(opacity float32, premultiply bool) *Noise {
	defines := map[string]string{}
	if premultiply {
		defines["PREMULTIPLY"] = ""
	}
	e := &Noise{}
	e.BaseEffect = postfx.NewBaseEffect("Noise", noiseFragment,
		postfx.WithDefines(defines),
		postfx.WithBlendMode(postfx.BlendAdd),
		postfx.WithOptional(true),
	)
	e.SetOpacity(opacity)
	return e
}

// Premultiply reports whether the noise is multiplied with the input.
func (e *Noise) Premultiply() bool {
	_, ok := e.Defines()["PREMULTIPLY"]
	return ok
}
