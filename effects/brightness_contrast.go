package effects

import "github.com/gogpu/postfx"

const brightnessContrastFragment = `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	var rgb = inputColor.rgb + vec3<f32>(brightness - 0.5);
	if (contrast > 0.0) {
		rgb = rgb / vec3<f32>(1.0 - contrast);
	} else {
		rgb = rgb * vec3<f32>(1.0 + contrast);
	}
	return vec4<f32>(clamp(rgb + vec3<f32>(0.5), vec3<f32>(0.0), vec3<f32>(1.0)), inputColor.a);
}
`

// BrightnessContrast adjusts brightness and contrast. Both are in
// [-1, 1]; zero leaves the image unchanged.
type BrightnessContrast struct {
	postfx.BaseEffect
}

// NewBrightnessContrast returns the effect with the given settings.
func NewBrightnessContrast(brightness, contrast float32) *BrightnessContrast {
	e := &BrightnessContrast{}
	e.BaseEffect = postfx.NewBaseEffect("BrightnessContrast", brightnessContrastFragment,
		postfx.WithUniforms(map[string]*postfx.Uniform{
			"brightness": postfx.NewUniform(brightness),
			"contrast":   postfx.NewUniform(contrast),
		}),
		postfx.WithBlendMode(postfx.BlendSrc),
	)
	return e
}

// SetBrightness sets the brightness offset.
func (e *BrightnessContrast) SetBrightness(v float32) { e.SetUniform("brightness", v) }

// SetContrast sets the contrast.
func (e *BrightnessContrast) SetContrast(v float32) { e.SetUniform("contrast", v) }
