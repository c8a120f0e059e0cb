package postfx

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/shader"
)

// NamedUniform is a uniform with its program-wide name.
type NamedUniform struct {
	Name    string
	Uniform *Uniform
}

// EffectShaderData accumulates the contributions of effects merged into
// one program. Contributions are kept in integration order.
type EffectShaderData struct {
	Uniforms   []NamedUniform
	Textures   []NamedUniform
	Defines    map[string]string
	Extensions map[string]struct{}

	FragmentHead      string
	FragmentMainUV    string
	FragmentMainImage string
	VertexHead        string
	VertexMainSupport string

	Attributes EffectAttribute

	// Effects lists the names of integrated effects.
	Effects []string
}

// NewEffectShaderData returns empty shader data.
func NewEffectShaderData() *EffectShaderData {
	return &EffectShaderData{
		Defines:    make(map[string]string),
		Extensions: make(map[string]struct{}),
	}
}

// declRe matches module-scope declarations whose names must be namespaced.
var declRe = regexp.MustCompile(`(?m)^\s*(?:fn|const|override|struct|alias|var(?:<[^>]*>)?)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// EffectPrefix returns the namespace prefix for an effect id.
func EffectPrefix(id uint32) string {
	return fmt.Sprintf("fx%d_", id)
}

// Integrate merges one effect. Its declarations, uniforms and defines are
// prefixed with EffectPrefix(prefixID); its mainUv and mainImage calls are
// appended after those already integrated.
func (d *EffectShaderData) Integrate(prefixID uint32, e Effect) error {
	attrs := e.Attributes()
	if attrs&AttributeConvolution != 0 && d.Attributes&AttributeConvolution != 0 {
		return fmt.Errorf("%w: %s", ErrConvolutionConflict, e.Name())
	}

	prefix := EffectPrefix(prefixID)
	frag, vert := e.FragmentShader(), e.VertexShader()
	uniforms := e.Uniforms()
	defines := e.Defines()

	rename := make(map[string]string)
	var hasMainImage, hasMainUv, hasMainSupport bool
	for _, m := range declRe.FindAllStringSubmatch(frag+"\n"+vert, -1) {
		name := m[1]
		rename[name] = prefix + name
		switch name {
		case "mainImage":
			hasMainImage = true
		case "mainUv":
			hasMainUv = true
		case "mainSupport":
			hasMainSupport = true
		}
	}
	if !hasMainImage && !hasMainUv {
		return fmt.Errorf("%w: %s", ErrNoEntryPoint, e.Name())
	}
	for name, u := range uniforms {
		if u.IsTexture() {
			rename[name] = prefix + name
		} else {
			rename[name] = "uniforms." + prefix + name
		}
	}
	for name := range defines {
		rename[name] = prefix + name
	}
	replace := func(id string) (string, bool) {
		v, ok := rename[id]
		return v, ok
	}

	d.FragmentHead += fmt.Sprintf("// %s\n%s\n", e.Name(), strings.TrimSpace(shader.ReplaceIdentifiers(frag, replace)))
	if hasMainUv {
		d.FragmentMainUV += fmt.Sprintf("\tuv = %smainUv(uv);\n", prefix)
	}
	if hasMainImage && e.BlendMode() != BlendSkip {
		d.FragmentMainImage += fmt.Sprintf("\tcolor = %s(color, %smainImage(color, uv, depth), uniforms.%sopacity);\n",
			e.BlendMode().function(), prefix, prefix)
		d.Uniforms = append(d.Uniforms, NamedUniform{Name: prefix + "opacity", Uniform: e.Opacity()})
	}
	if vert != "" {
		d.VertexHead += strings.TrimSpace(shader.ReplaceIdentifiers(vert, replace)) + "\n"
		if hasMainSupport {
			d.VertexMainSupport += fmt.Sprintf("\t%smainSupport(out.uv);\n", prefix)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(uniforms)) {
		u := uniforms[name]
		nu := NamedUniform{Name: prefix + name, Uniform: u}
		if u.IsTexture() {
			d.Textures = append(d.Textures, nu)
		} else {
			d.Uniforms = append(d.Uniforms, nu)
		}
	}
	for name, v := range defines {
		d.Defines[prefix+name] = v
	}
	for _, ext := range e.Extensions() {
		d.Extensions[ext] = struct{}{}
	}
	d.Attributes |= attrs
	d.Effects = append(d.Effects, e.Name())
	return nil
}

// Add appends the contributions of other after those of d.
func (d *EffectShaderData) Add(other *EffectShaderData) error {
	if d.Attributes&other.Attributes&AttributeConvolution != 0 {
		return fmt.Errorf("%w: %v", ErrConvolutionConflict, other.Effects)
	}
	d.Uniforms = append(d.Uniforms, other.Uniforms...)
	d.Textures = append(d.Textures, other.Textures...)
	maps.Copy(d.Defines, other.Defines)
	maps.Copy(d.Extensions, other.Extensions)
	d.FragmentHead += other.FragmentHead
	d.FragmentMainUV += other.FragmentMainUV
	d.FragmentMainImage += other.FragmentMainImage
	d.VertexHead += other.VertexHead
	d.VertexMainSupport += other.VertexMainSupport
	d.Attributes |= other.Attributes
	d.Effects = append(d.Effects, other.Effects...)
	return nil
}

const readDepthFn = `fn readDepth(uv: vec2<f32>) -> f32 {
	let dims = vec2<i32>(textureDimensions(depthBuffer));
	let coord = clamp(vec2<i32>(uv * vec2<f32>(dims)), vec2<i32>(0), dims - vec2<i32>(1));
	return textureLoad(depthBuffer, coord, 0);
}
`

// Program returns the merged fullscreen program and the frame uniforms
// at the start of its uniform block. Textures are bound as inputBuffer,
// then depthBuffer when any effect needs depth, then effect textures.
func (d *EffectShaderData) Program(label string) (*FullscreenProgram, *FrameUniforms, error) {
	block, frame := NewFrameUniformBlock()
	for _, nu := range d.Uniforms {
		if err := block.Add(nu.Name, nu.Uniform); err != nil {
			return nil, nil, err
		}
	}

	needsDepth := d.Attributes&AttributeDepth != 0
	textures := []backend.TextureSlot{{Name: InputBufferName}}
	if needsDepth {
		textures = append(textures, backend.TextureSlot{Name: DepthBufferName, Depth: true})
	}
	for _, t := range d.Textures {
		textures = append(textures, backend.TextureSlot{Name: t.Name})
	}

	var head strings.Builder
	if needsDepth {
		head.WriteString(readDepthFn)
		head.WriteByte('\n')
	}
	head.WriteString(d.FragmentHead)

	var body strings.Builder
	body.WriteString("\tvar uv = in.uv;\n")
	body.WriteString(d.FragmentMainUV)
	fmt.Fprintf(&body, "\tvar color = textureSample(%s, %s, uv);\n", InputBufferName, InputSamplerName)
	if needsDepth {
		body.WriteString("\tlet depth = readDepth(uv);\n")
	} else {
		body.WriteString("\tlet depth = 1.0;\n")
	}
	body.WriteString(d.FragmentMainImage)
	body.WriteString("\treturn color;\n")

	p := &FullscreenProgram{
		Label:      label,
		Extensions: slices.Sorted(maps.Keys(d.Extensions)),
		Uniforms:   block,
		Textures:   textures,
		Defines:    maps.Clone(d.Defines),
		Head:       head.String(),
		Body:       body.String(),
		VertexHead: d.VertexHead,
		VertexMain: d.VertexMainSupport,
	}
	return p, frame, nil
}
