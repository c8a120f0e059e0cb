package passes

import (
	"context"

	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
)

const copyBody = `	return textureSample(inputBuffer, inputSampler, in.uv);
`

// CopyPass copies its default input buffer into its default render
// target. Backends implementing backend.Blitter copy without a program.
type CopyPass struct {
	*postfx.BasePass
	program *program
}

// NewCopyPass returns a copy pass.
func NewCopyPass() *CopyPass {
	p := &CopyPass{BasePass: postfx.NewBasePass("CopyPass")}
	p.program, _ = newProgram("CopyPass", nil,
		[]backend.TextureSlot{{Name: postfx.InputBufferName}}, "", copyBody)
	p.DeclareRenderTarget(postfx.BufferDefault, postfx.RenderTargetSpec{})
	p.OnDispose(p.program.destroy)
	return p
}

// Compile builds the copy program unless the backend can blit.
func (p *CopyPass) Compile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := p.Backend().(backend.Blitter); ok {
		return nil
	}
	return p.program.compile(p.Backend())
}

// Render copies the input.
func (p *CopyPass) Render(frame postfx.Frame) error {
	b := p.Backend()
	if b == nil {
		return postfx.ErrNoBackend
	}
	src := bufferTexture(p.Input().DefaultBuffer())
	if src == nil {
		return postfx.ErrMissingBuffer
	}
	dst := p.Target(postfx.BufferDefault)
	if blitter, ok := b.(backend.Blitter); ok {
		return blitter.Blit(src, dst)
	}
	w, h := p.Resolution().EffectiveSize()
	return p.program.draw(b, dst, w, h, frame.Time, src)
}
