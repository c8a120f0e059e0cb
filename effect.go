package postfx

import (
	"maps"
	"slices"
	"strings"
	"sync/atomic"
)

// EffectAttribute flags describe what an effect needs from the program it
// is merged into.
type EffectAttribute uint8

const (
	// AttributeNone marks an effect without special requirements.
	AttributeNone EffectAttribute = 0

	// AttributeDepth makes the scene depth available as the depth argument
	// of mainImage.
	AttributeDepth EffectAttribute = 1 << iota

	// AttributeConvolution marks an effect that samples neighboring texels
	// of the input buffer.
	AttributeConvolution
)

func (a EffectAttribute) String() string {
	if a == AttributeNone {
		return "NONE"
	}
	var parts []string
	if a&AttributeDepth != 0 {
		parts = append(parts, "DEPTH")
	}
	if a&AttributeConvolution != 0 {
		parts = append(parts, "CONVOLUTION")
	}
	return strings.Join(parts, "|")
}

// BlendMode combines an effect's output with the running color.
type BlendMode int

// Blend modes.
const (
	BlendNormal BlendMode = iota
	BlendSrc
	BlendAdd
	BlendMultiply
	BlendScreen

	// BlendSkip disables the effect's mainImage while keeping its mainUv.
	BlendSkip
)

// function returns the WGSL blend function from the blend_functions chunk.
func (m BlendMode) function() string {
	switch m {
	case BlendSrc:
		return "blendSrc"
	case BlendAdd:
		return "blendAdd"
	case BlendMultiply:
		return "blendMultiply"
	case BlendScreen:
		return "blendScreen"
	}
	return "blendNormal"
}

// Effect is a shader fragment that can be merged with other effects into
// one fullscreen program.
//
// The fragment shader is WGSL declaring at least one of
//
//	fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32>
//	fn mainUv(uv: vec2<f32>) -> vec2<f32>
//
// Uniform names are used as plain identifiers in the source; they are
// rewritten to fields of the merged uniform block. Texture uniforms become
// texture bindings sampled with inputSampler. The builtins uniforms.time,
// uniforms.resolution, uniforms.texelSize, uniforms.cameraNear and
// uniforms.cameraFar are always available, as are inputBuffer and
// inputSampler.
type Effect interface {
	// ID is unique per effect instance and namespaces its identifiers.
	ID() uint32
	Name() string

	FragmentShader() string

	// VertexShader may declare fn mainSupport(uv: vec2<f32>), called from
	// the vertex stage.
	VertexShader() string

	Attributes() EffectAttribute
	Uniforms() map[string]*Uniform
	Defines() map[string]string
	Extensions() []string

	BlendMode() BlendMode
	Opacity() *Uniform

	// Optional effects can be toggled without rebuilding the pipeline.
	Optional() bool
	Enabled() bool
	SetEnabled(enabled bool)

	Dispose()
}

var effectIDs atomic.Uint32

// BaseEffect implements Effect. Concrete effects embed it and fill it in
// their constructors.
type BaseEffect struct {
	id         uint32
	name       string
	fragment   string
	vertex     string
	attributes EffectAttribute
	uniforms   map[string]*Uniform
	defines    map[string]string
	extensions []string
	blend      BlendMode
	opacity    *Uniform
	optional   bool
	enabled    bool
}

// EffectOption configures a BaseEffect.
type EffectOption func(*BaseEffect)

// WithAttributes sets the attribute flags.
func WithAttributes(a EffectAttribute) EffectOption {
	return func(e *BaseEffect) { e.attributes = a }
}

// WithUniforms sets the effect uniforms.
func WithUniforms(u map[string]*Uniform) EffectOption {
	return func(e *BaseEffect) { e.uniforms = u }
}

// WithDefines sets the effect defines.
func WithDefines(d map[string]string) EffectOption {
	return func(e *BaseEffect) { e.defines = d }
}

// WithVertexShader sets the vertex contribution.
func WithVertexShader(src string) EffectOption {
	return func(e *BaseEffect) { e.vertex = src }
}

// WithExtensions sets the WGSL extensions the effect enables.
func WithExtensions(ext ...string) EffectOption {
	return func(e *BaseEffect) { e.extensions = ext }
}

// WithBlendMode sets the blend mode.
func WithBlendMode(m BlendMode) EffectOption {
	return func(e *BaseEffect) { e.blend = m }
}

// WithOptional marks the effect optional.
func WithOptional(optional bool) EffectOption {
	return func(e *BaseEffect) { e.optional = optional }
}

// NewBaseEffect returns an enabled, mandatory effect with normal blending
// and full opacity.
func NewBaseEffect(name, fragment string, opts ...EffectOption) BaseEffect {
	e := BaseEffect{
		id:       effectIDs.Add(1),
		name:     name,
		fragment: fragment,
		uniforms: make(map[string]*Uniform),
		defines:  make(map[string]string),
		opacity:  NewUniform(float32(1)),
		enabled:  true,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e *BaseEffect) ID() uint32                    { return e.id }
func (e *BaseEffect) Name() string                  { return e.name }
func (e *BaseEffect) FragmentShader() string        { return e.fragment }
func (e *BaseEffect) VertexShader() string          { return e.vertex }
func (e *BaseEffect) Attributes() EffectAttribute   { return e.attributes }
func (e *BaseEffect) Uniforms() map[string]*Uniform { return e.uniforms }
func (e *BaseEffect) Defines() map[string]string    { return e.defines }
func (e *BaseEffect) Extensions() []string          { return slices.Clone(e.extensions) }
func (e *BaseEffect) BlendMode() BlendMode          { return e.blend }
func (e *BaseEffect) Opacity() *Uniform             { return e.opacity }
func (e *BaseEffect) Optional() bool                { return e.optional }
func (e *BaseEffect) Enabled() bool                 { return e.enabled }
func (e *BaseEffect) SetEnabled(enabled bool)       { e.enabled = enabled }

// SetBlendMode changes the blend mode. Programs merged earlier keep the
// old mode until their material is rebuilt.
func (e *BaseEffect) SetBlendMode(m BlendMode) { e.blend = m }

// SetOpacity sets the blend opacity.
func (e *BaseEffect) SetOpacity(opacity float32) { e.opacity.Value = opacity }

// SetUniform sets or adds a uniform value.
func (e *BaseEffect) SetUniform(name string, value any) {
	if u, ok := e.uniforms[name]; ok {
		u.Value = value
		return
	}
	e.uniforms[name] = NewUniform(value)
}

// Dispose releases textures owned through texture uniforms.
func (e *BaseEffect) Dispose() {
	for _, name := range slices.Sorted(maps.Keys(e.uniforms)) {
		if r, ok := e.uniforms[name].Value.(*TextureResource); ok && r != nil {
			r.Dispose()
		}
	}
}
