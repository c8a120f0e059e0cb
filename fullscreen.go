package postfx

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/shader"
)

// Names of the bindings every fullscreen program declares.
const (
	InputBufferName  = "inputBuffer"
	InputSamplerName = "inputSampler"
	DepthBufferName  = "depthBuffer"
)

// FrameUniforms are the builtin fields at the start of every uniform block.
type FrameUniforms struct {
	TexelSize  *Uniform // mgl32.Vec2
	Resolution *Uniform // mgl32.Vec2
	CameraNear *Uniform // float32
	CameraFar  *Uniform // float32
	Time       *Uniform // float32, seconds
}

// NewFrameUniformBlock returns a block holding only the builtins.
func NewFrameUniformBlock() (*UniformBlock, *FrameUniforms) {
	f := &FrameUniforms{
		TexelSize:  NewUniform(mgl32.Vec2{1, 1}),
		Resolution: NewUniform(mgl32.Vec2{1, 1}),
		CameraNear: NewUniform(float32(0.3)),
		CameraFar:  NewUniform(float32(1000)),
		Time:       NewUniform(float32(0)),
	}
	b := NewUniformBlock()
	_ = b.Add("texelSize", f.TexelSize)
	_ = b.Add("resolution", f.Resolution)
	_ = b.Add("cameraNear", f.CameraNear)
	_ = b.Add("cameraFar", f.CameraFar)
	_ = b.Add("time", f.Time)
	return b, f
}

// Update sets the size and time builtins.
func (f *FrameUniforms) Update(width, height int, t time.Duration) {
	w, h := float32(max(width, 1)), float32(max(height, 1))
	f.Resolution.Value = mgl32.Vec2{w, h}
	f.TexelSize.Value = mgl32.Vec2{1 / w, 1 / h}
	f.Time.Value = float32(t.Seconds())
}

// FullscreenProgram assembles a WGSL program with the backend binding
// layout: the uniform block, inputSampler and then Textures in order.
type FullscreenProgram struct {
	Label      string
	Extensions []string
	Uniforms   *UniformBlock
	Textures   []backend.TextureSlot
	Defines    map[string]string

	// Head holds module-scope declarations.
	Head string

	// Body is the fs_main body. The vertex output is in scope as in and
	// must be returned as a vec4<f32> color.
	Body string

	// VertexHead and VertexMain extend the fullscreen vertex stage.
	// VertexMain statements run after out.uv is set.
	VertexHead string
	VertexMain string
}

const vertexTemplate = `struct VertexOutput {
	@builtin(position) position: vec4<f32>,
	@location(0) uv: vec2<f32>,
};

%s
@vertex
fn vs_main(@builtin(vertex_index) vertexIndex: u32) -> VertexOutput {
	var out: VertexOutput;
	let x = f32((vertexIndex << 1u) & 2u);
	let y = f32(vertexIndex & 2u);
	out.position = vec4<f32>(x * 2.0 - 1.0, 1.0 - y * 2.0, 0.0, 1.0);
	out.uv = vec2<f32>(x, y);
%s	return out;
}
`

// Source returns the complete WGSL program. Preprocessor directives are
// left for the backend.
func (p *FullscreenProgram) Source() string {
	var sb strings.Builder

	ext := slices.Clone(p.Extensions)
	slices.Sort(ext)
	for _, e := range slices.Compact(ext) {
		fmt.Fprintf(&sb, "enable %s;\n", e)
	}

	uniforms := p.Uniforms
	if uniforms == nil {
		uniforms, _ = NewFrameUniformBlock()
	}
	sb.WriteString(uniforms.Declaration("Uniforms"))
	fmt.Fprintf(&sb, "@group(0) @binding(%d) var<uniform> uniforms: Uniforms;\n", backend.BindingUniforms)
	fmt.Fprintf(&sb, "@group(0) @binding(%d) var %s: sampler;\n", backend.BindingSampler, InputSamplerName)
	for i, t := range p.Textures {
		typ := "texture_2d<f32>"
		if t.Depth {
			typ = "texture_depth_2d"
		}
		fmt.Fprintf(&sb, "@group(0) @binding(%d) var %s: %s;\n", backend.BindingFirstTexture+i, t.Name, typ)
	}
	sb.WriteByte('\n')

	if p.VertexHead == "" && p.VertexMain == "" {
		fmt.Fprintf(&sb, "#include <%s>\n", shader.ChunkFullscreenVertex)
	} else {
		fmt.Fprintf(&sb, vertexTemplate, p.VertexHead, p.VertexMain)
	}
	fmt.Fprintf(&sb, "#include <%s>\n#include <%s>\n#include <%s>\n\n",
		shader.ChunkBlendFunctions, shader.ChunkColorUtils, shader.ChunkDepthUtils)

	sb.WriteString(p.Head)
	sb.WriteString("\n@fragment\nfn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {\n")
	sb.WriteString(p.Body)
	sb.WriteString("}\n")
	return sb.String()
}

// Descriptor returns the backend program descriptor.
func (p *FullscreenProgram) Descriptor() backend.ProgramDescriptor {
	size := 16
	if p.Uniforms != nil {
		size = p.Uniforms.Size()
	} else {
		b, _ := NewFrameUniformBlock()
		size = b.Size()
	}
	return backend.ProgramDescriptor{
		Label:       p.Label,
		Source:      p.Source(),
		Defines:     p.Defines,
		Textures:    slices.Clone(p.Textures),
		UniformSize: size,
	}
}
