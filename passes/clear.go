package passes

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/postfx"
)

// ClearPass fills its default render target with a color.
type ClearPass struct {
	*postfx.BasePass
	color gputypes.Color
}

// NewClearPass returns a pass clearing to c.
func NewClearPass(c gputypes.Color) *ClearPass {
	p := &ClearPass{BasePass: postfx.NewBasePass("ClearPass"), color: c}
	p.DeclareRenderTarget(postfx.BufferDefault, postfx.RenderTargetSpec{})
	return p
}

// Color returns the clear color.
func (p *ClearPass) Color() gputypes.Color { return p.color }

// SetColor sets the clear color.
func (p *ClearPass) SetColor(c gputypes.Color) { p.color = c }

// Render clears the target.
func (p *ClearPass) Render(postfx.Frame) error {
	b := p.Backend()
	if b == nil {
		return postfx.ErrNoBackend
	}
	return b.Clear(p.Target(postfx.BufferDefault), p.color)
}
