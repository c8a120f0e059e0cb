package effects

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx"
)

const depthFogFragment = `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	let viewZ = linearizeDepth(depth, uniforms.cameraNear, uniforms.cameraFar);
	let f = 1.0 - exp(-density * density * viewZ * viewZ);
	return vec4<f32>(mix(inputColor.rgb, fogColor.rgb, clamp(f, 0.0, 1.0)), inputColor.a);
}
`

// DepthFog fades the scene into a color with exponential squared fog
// based on linear depth.
type DepthFog struct {
	postfx.BaseEffect
}

// NewDepthFog returns fog of the given color and density.
func NewDepthFog(c gputypes.Color, density float32) *DepthFog {
	e := &DepthFog{}
	e.BaseEffect = postfx.NewBaseEffect("DepthFog", depthFogFragment,
		postfx.WithAttributes(postfx.AttributeDepth),
		postfx.WithUniforms(map[string]*postfx.Uniform{
			"fogColor": postfx.NewUniform(c),
			"density":  postfx.NewUniform(density),
		}),
		postfx.WithBlendMode(postfx.BlendSrc),
	)
	return e
}

// SetColor sets the fog color.
func (e *DepthFog) SetColor(c gputypes.Color) { e.SetUniform("fogColor", c) }

// SetDensity sets the fog density.
func (e *DepthFog) SetDensity(v float32) { e.SetUniform("density", v) }
