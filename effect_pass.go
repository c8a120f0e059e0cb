package postfx

import (
	"context"
	"fmt"

	"github.com/gogpu/postfx/backend"
)

// EffectPass renders a list of effects merged into as few programs as
// possible. It reads BufferDefault, and BufferDepth when an effect needs
// depth, and writes its default render target.
type EffectPass struct {
	*BasePass

	effects []Effect
	manager *EffectMaterialManager
	buf     []byte
}

// NewEffectPass returns a pass rendering effects in order. More than one
// convolution effect is rejected with ErrConvolutionConflict.
func NewEffectPass(effects ...Effect) (*EffectPass, error) {
	p := &EffectPass{
		BasePass: NewBasePass("EffectPass"),
		effects:  effects,
	}
	p.manager = NewEffectMaterialManager(nil, WithMaterialLabel(p.Name()))
	if err := p.manager.SetEffects(effects); err != nil {
		return nil, err
	}

	var attrs EffectAttribute
	for _, e := range effects {
		attrs |= e.Attributes()
	}
	if attrs&AttributeDepth != 0 {
		p.Input().RequireGBuffer(GBufferDepth)
	}

	p.DeclareRenderTarget(BufferDefault, RenderTargetSpec{})
	p.Input().OnChange(p.updateDefines)
	p.OnAttach(func(b backend.Backend) error {
		p.manager.SetCompiler(b)
		if pl := p.Pipeline(); pl != nil {
			if err := p.manager.applyOptions(pl.materialOptions...); err != nil {
				return fmt.Errorf("postfx: pass %q: %w", p.Name(), err)
			}
		}
		return nil
	})
	p.OnDispose(func() {
		p.manager.Dispose()
		for _, e := range p.effects {
			e.Dispose()
		}
	})
	return p, nil
}

// Effects returns the effects of the pass.
func (p *EffectPass) Effects() []Effect { return p.effects }

// Materials returns the material manager.
func (p *EffectPass) Materials() *EffectMaterialManager { return p.manager }

func (p *EffectPass) updateDefines() {
	defines := p.Input().Defines()
	if p.Input().FrameBufferType() == FrameBufferHalfFloat {
		defines[DefineHighPrecision] = "1"
	}
	p.manager.SetDefines(defines)
}

// Compile builds the program for the currently enabled effects.
func (p *EffectPass) Compile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Backend() == nil {
		return ErrNoBackend
	}
	_, err := p.manager.Material()
	return err
}

// Render draws the merged effects.
func (p *EffectPass) Render(frame Frame) error {
	b := p.Backend()
	if b == nil {
		return ErrNoBackend
	}
	mat, err := p.manager.Material()
	if err != nil {
		return err
	}

	w, h := p.Resolution().EffectiveSize()
	mat.Frame.Update(w, h, frame.Time)
	if u := p.Input().Uniform("cameraNear"); u != nil {
		mat.Frame.CameraNear.Value = u.Value
	}
	if u := p.Input().Uniform("cameraFar"); u != nil {
		mat.Frame.CameraFar.Value = u.Value
	}

	p.buf, err = mat.Shader.Uniforms.Pack(p.buf[:0])
	if err != nil {
		return err
	}
	textures, err := p.textures(mat)
	if err != nil {
		return err
	}
	return b.Draw(backend.DrawCall{
		Label:    p.Name(),
		Program:  mat.Program,
		Target:   p.Target(BufferDefault),
		Uniforms: p.buf,
		Textures: textures,
	})
}

func (p *EffectPass) textures(mat *Material) ([]backend.Texture, error) {
	effectTextures := make(map[string]*Uniform, len(mat.Data.Textures))
	for _, t := range mat.Data.Textures {
		effectTextures[t.Name] = t.Uniform
	}

	textures := make([]backend.Texture, 0, len(mat.Shader.Textures))
	for _, slot := range mat.Shader.Textures {
		var tex backend.Texture
		switch slot.Name {
		case InputBufferName:
			if r := p.Input().DefaultBuffer(); r != nil {
				tex = r.Value()
			}
		case DepthBufferName:
			if r := p.Input().Buffer(BufferDepth); r != nil {
				tex = r.Value()
			}
		default:
			if u := effectTextures[slot.Name]; u != nil {
				tex = u.Texture()
			}
		}
		if isNil(tex) {
			return nil, fmt.Errorf("%w: %s", ErrMissingBuffer, slot.Name)
		}
		textures = append(textures, tex)
	}
	return textures, nil
}
