package postfx

import (
	"context"
	"errors"

	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/backend/headless"
)

type fakeProgram struct {
	label     string
	desc      backend.ProgramDescriptor
	destroyed bool
}

func (p *fakeProgram) Label() string { return p.label }
func (p *fakeProgram) Destroy()      { p.destroyed = true }

type fakeCompiler struct {
	programs []*fakeProgram
	err      error
}

func (c *fakeCompiler) CompileProgram(desc backend.ProgramDescriptor) (backend.Program, error) {
	if c.err != nil {
		return nil, c.err
	}
	p := &fakeProgram{label: desc.Label, desc: desc}
	c.programs = append(c.programs, p)
	return p, nil
}

func (c *fakeCompiler) live() int {
	n := 0
	for _, p := range c.programs {
		if !p.destroyed {
			n++
		}
	}
	return n
}

type testEffect struct {
	BaseEffect
}

func newTestEffect(name, fragment string, opts ...EffectOption) *testEffect {
	e := &testEffect{}
	e.BaseEffect = NewBaseEffect(name, fragment, opts...)
	return e
}

const tintFragment = `fn mainImage(inputColor: vec4<f32>, uv: vec2<f32>, depth: f32) -> vec4<f32> {
	return inputColor * strength;
}
`

func newTint(name string, optional bool) *testEffect {
	return newTestEffect(name, tintFragment,
		WithUniforms(map[string]*Uniform{"strength": NewUniform(float32(0.5))}),
		WithOptional(optional),
	)
}

// recordingPass appends its name to log when rendered.
type recordingPass struct {
	*BasePass
	log        *[]string
	err        error
	compileErr error
	compiles   int
}

func newRecordingPass(name string, log *[]string) *recordingPass {
	p := &recordingPass{BasePass: NewBasePass(name), log: log}
	p.DeclareRenderTarget(BufferDefault, RenderTargetSpec{})
	return p
}

func (p *recordingPass) Render(frame Frame) error {
	if p.err != nil {
		return p.err
	}
	*p.log = append(*p.log, p.Name())
	return p.RenderSubpasses(frame)
}

func (p *recordingPass) Compile(ctx context.Context) error {
	p.compiles++
	return p.compileErr
}

func newHeadless() *headless.Backend {
	return headless.New(headless.WithCompiler(nil))
}

var errBoom = errors.New("boom")
