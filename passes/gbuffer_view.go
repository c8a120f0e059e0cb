package passes

import (
	"context"
	"fmt"

	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
)

// displayExpr converts a decoded field to a displayable color.
var displayExpr = map[postfx.GData]string{
	postfx.GDataColor:     "data.color",
	postfx.GDataDepth:     "vec4<f32>(vec3<f32>(1.0 - linearizeDepth(data.depth, uniforms.cameraNear, uniforms.cameraFar) / uniforms.cameraFar), 1.0)",
	postfx.GDataNormal:    "vec4<f32>(data.normal * 0.5 + 0.5, 1.0)",
	postfx.GDataOcclusion: "vec4<f32>(vec3<f32>(data.occlusion), 1.0)",
	postfx.GDataRoughness: "vec4<f32>(vec3<f32>(data.roughness), 1.0)",
	postfx.GDataMetalness: "vec4<f32>(vec3<f32>(data.metalness), 1.0)",
	postfx.GDataEmission:  "vec4<f32>(data.emission, 1.0)",
	postfx.GDataPosition:  "vec4<f32>(data.position * 0.5 + 0.5, 1.0)",
	postfx.GDataVelocity:  "vec4<f32>(data.velocity * 0.5 + 0.5, 0.0, 1.0)",
}

// GBufferViewPass visualizes one G-Buffer field. It is meant for
// debugging geometry output.
type GBufferViewPass struct {
	*postfx.BasePass

	field      postfx.GData
	source     *postfx.Output
	components []postfx.GBufferComponent
	program    *program
}

// NewGBufferViewPass returns a pass showing field. The G-Buffer textures
// are looked up in the pass input first and then in source, which may be
// nil.
func NewGBufferViewPass(field postfx.GData, source *postfx.Output) *GBufferViewPass {
	p := &GBufferViewPass{
		BasePass: postfx.NewBasePass("GBufferViewPass"),
		field:    field,
		source:   source,
	}
	p.DeclareRenderTarget(postfx.BufferDefault, postfx.RenderTargetSpec{})
	if _, err := p.require(); err != nil {
		postfx.Logger().Warn("passes: g-buffer view", "field", field, "err", err)
	}
	p.OnDispose(func() {
		if p.program != nil {
			p.program.destroy()
		}
	})
	return p
}

// Field returns the visualized field.
func (p *GBufferViewPass) Field() postfx.GData { return p.field }

// SetField changes the visualized field. The program is rebuilt lazily.
func (p *GBufferViewPass) SetField(field postfx.GData) {
	if field == p.field {
		return
	}
	p.field = field
	p.reset()
	if _, err := p.require(); err != nil {
		postfx.Logger().Warn("passes: g-buffer view", "field", field, "err", err)
	}
}

func (p *GBufferViewPass) reset() {
	if p.program != nil {
		p.program.destroy()
		p.program = nil
	}
	p.Input().ReleaseGBuffer(p.components...)
	p.components = nil
}

func (p *GBufferViewPass) config() *postfx.GBufferConfig {
	if cfg := p.Input().GBufferConfig(); cfg != nil {
		return cfg
	}
	return postfx.NewGBufferConfig()
}

// require resolves the field and requests its components from the
// G-Buffer.
func (p *GBufferViewPass) require() (postfx.ResolvedData, error) {
	if _, ok := displayExpr[p.field]; !ok {
		return postfx.ResolvedData{}, fmt.Errorf("passes: no display for %v", p.field)
	}
	resolved, err := p.config().ResolveData([]postfx.GData{p.field})
	if err != nil {
		return resolved, err
	}
	if len(resolved.Components) == 0 {
		return resolved, fmt.Errorf("passes: %v reads no g-buffer component", p.field)
	}
	p.Input().ReleaseGBuffer(p.components...)
	p.components = resolved.Components
	p.Input().RequireGBuffer(p.components...)
	return resolved, nil
}

// prepare assembles the program.
func (p *GBufferViewPass) prepare() error {
	if p.program != nil {
		return nil
	}
	resolved, err := p.require()
	if err != nil {
		return err
	}
	cfg := p.config()
	expr := displayExpr[p.field]
	_, slots := cfg.Bindings(resolved.Components, backend.BindingFirstTexture)
	body := fmt.Sprintf(`	let dims = vec2<i32>(textureDimensions(%s));
	let coord = clamp(vec2<i32>(in.uv * vec2<f32>(dims)), vec2<i32>(0), dims - vec2<i32>(1));
	let data = readGData(in.uv, coord);
	return %s;
`, slots[0].Name, expr)

	prog, err := newProgram("GBufferViewPass."+p.field.String(), nil, slots, cfg.DataShader(resolved), body)
	if err != nil {
		return err
	}
	p.program = prog
	return nil
}

// Compile builds the view program.
func (p *GBufferViewPass) Compile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.prepare(); err != nil {
		return err
	}
	return p.program.compile(p.Backend())
}

func (p *GBufferViewPass) texture(c postfx.GBufferComponent) backend.Texture {
	name := c.BufferName()
	if tex := bufferTexture(p.Input().Buffer(name)); tex != nil {
		return tex
	}
	if p.source != nil {
		return bufferTexture(p.source.Buffer(name))
	}
	return nil
}

// Render draws the decoded field.
func (p *GBufferViewPass) Render(frame postfx.Frame) error {
	b := p.Backend()
	if b == nil {
		return postfx.ErrNoBackend
	}
	if err := p.prepare(); err != nil {
		return err
	}
	textures := make([]backend.Texture, len(p.components))
	for i, c := range p.components {
		tex := p.texture(c)
		if tex == nil {
			return fmt.Errorf("%w: %s", postfx.ErrMissingBuffer, c.BufferName())
		}
		textures[i] = tex
	}
	w, h := p.Resolution().EffectiveSize()
	return p.program.draw(b, p.Target(postfx.BufferDefault), w, h, frame.Time, textures...)
}
