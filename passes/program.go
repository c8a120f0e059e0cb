package passes

import (
	"fmt"
	"time"

	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
)

// program is a lazily compiled fullscreen program with its uniforms.
type program struct {
	shader   *postfx.FullscreenProgram
	frame    *postfx.FrameUniforms
	compiled backend.Program
	buf      []byte
}

func newProgram(label string, uniforms []postfx.NamedUniform, textures []backend.TextureSlot, head, body string) (*program, error) {
	block, frame := postfx.NewFrameUniformBlock()
	for _, u := range uniforms {
		if err := block.Add(u.Name, u.Uniform); err != nil {
			return nil, fmt.Errorf("passes: %s: %w", label, err)
		}
	}
	return &program{
		shader: &postfx.FullscreenProgram{
			Label:    label,
			Uniforms: block,
			Textures: textures,
			Head:     head,
			Body:     body,
		},
		frame: frame,
	}, nil
}

func (p *program) compile(b backend.Backend) error {
	if p.compiled != nil {
		return nil
	}
	if b == nil {
		return postfx.ErrNoBackend
	}
	prog, err := b.CompileProgram(p.shader.Descriptor())
	if err != nil {
		return err
	}
	p.compiled = prog
	return nil
}

// draw packs the uniforms for a width x height destination and draws.
func (p *program) draw(b backend.Backend, target backend.RenderTarget, width, height int, t time.Duration, textures ...backend.Texture) error {
	if err := p.compile(b); err != nil {
		return err
	}
	for i, tex := range textures {
		if tex == nil {
			return fmt.Errorf("%w: %s", postfx.ErrMissingBuffer, p.shader.Textures[i].Name)
		}
	}
	p.frame.Update(width, height, t)
	var err error
	p.buf, err = p.shader.Uniforms.Pack(p.buf[:0])
	if err != nil {
		return err
	}
	return b.Draw(backend.DrawCall{
		Label:    p.shader.Label,
		Program:  p.compiled,
		Target:   target,
		Uniforms: p.buf,
		Textures: textures,
	})
}

func (p *program) destroy() {
	if p.compiled != nil {
		p.compiled.Destroy()
		p.compiled = nil
	}
}

// bufferTexture returns the texture behind a buffer resource, or nil.
func bufferTexture(r *postfx.TextureResource) backend.Texture {
	if r == nil {
		return nil
	}
	return r.Value()
}
