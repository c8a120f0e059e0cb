package passes

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/postfx"
	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/filter"
)

// Blur defaults.
const (
	DefaultBlurKernelSize = 15
	DefaultBlurScale      = 0.5
)

const blurBody = `	let step = uniforms.direction * uniforms.sourceTexelSize;
	var color = textureSampleLevel(inputBuffer, inputSampler, in.uv, 0.0) * blurWeights[0];
	for (var i = 1; i <= BLUR_STEPS; i++) {
		let offset = step * blurOffsets[i];
		color += textureSampleLevel(inputBuffer, inputSampler, in.uv + offset, 0.0) * blurWeights[i];
		color += textureSampleLevel(inputBuffer, inputSampler, in.uv - offset, 0.0) * blurWeights[i];
	}
	return color;
`

// blurHead declares the linear taps of k as private arrays.
func blurHead(k *filter.GaussKernel) string {
	n := len(k.LinearWeights)
	list := func(vs []float64) string {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = fmt.Sprintf("%.8f", v)
		}
		return strings.Join(parts, ", ")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "const BLUR_STEPS: i32 = %d;\n", k.Steps())
	fmt.Fprintf(&sb, "var<private> blurWeights: array<f32, %d> = array<f32, %d>(%s);\n", n, n, list(k.LinearWeights))
	fmt.Fprintf(&sb, "var<private> blurOffsets: array<f32, %d> = array<f32, %d>(%s);\n", n, n, list(k.LinearOffsets))
	return sb.String()
}

// blurSubpass runs one direction of a separable blur.
type blurSubpass struct {
	*postfx.BasePass

	program     *program
	direction   *postfx.Uniform
	sourceTexel *postfx.Uniform

	source func() backend.Texture
	target func() (backend.RenderTarget, int, int)
}

func newBlurSubpass(name string, direction mgl32.Vec2) *blurSubpass {
	return &blurSubpass{
		BasePass:    postfx.NewBasePass(name),
		direction:   postfx.NewUniform(direction),
		sourceTexel: postfx.NewUniform(mgl32.Vec2{1, 1}),
	}
}

func (s *blurSubpass) build(k *filter.GaussKernel) error {
	if s.program != nil {
		s.program.destroy()
	}
	prog, err := newProgram(s.Name(), []postfx.NamedUniform{
		{Name: "direction", Uniform: s.direction},
		{Name: "sourceTexelSize", Uniform: s.sourceTexel},
	}, []backend.TextureSlot{{Name: postfx.InputBufferName}}, blurHead(k), blurBody)
	if err != nil {
		return err
	}
	s.program = prog
	return nil
}

func (s *blurSubpass) Render(frame postfx.Frame) error {
	b := s.Backend()
	if b == nil {
		return postfx.ErrNoBackend
	}
	src := s.source()
	if src == nil {
		return fmt.Errorf("%w: %s", postfx.ErrMissingBuffer, postfx.InputBufferName)
	}
	s.sourceTexel.Value = mgl32.Vec2{1 / float32(max(src.Width(), 1)), 1 / float32(max(src.Height(), 1))}
	target, w, h := s.target()
	return s.program.draw(b, target, w, h, frame.Time, src)
}

// GaussianBlurPass blurs its default input buffer with a separable
// Gaussian kernel. The horizontal pass renders at a reduced resolution;
// the vertical pass upsamples into the default render target.
type GaussianBlurPass struct {
	*postfx.BasePass

	kernel     *filter.GaussKernel
	horizontal *blurSubpass
	vertical   *blurSubpass
}

// NewGaussianBlurPass returns a blur pass with DefaultBlurKernelSize
// taps and DefaultBlurScale.
func NewGaussianBlurPass() *GaussianBlurPass {
	p := &GaussianBlurPass{
		BasePass:   postfx.NewBasePass("GaussianBlurPass"),
		horizontal: newBlurSubpass("GaussianBlurPass.horizontal", mgl32.Vec2{1, 0}),
		vertical:   newBlurSubpass("GaussianBlurPass.vertical", mgl32.Vec2{0, 1}),
	}
	p.DeclareRenderTarget(postfx.BufferDefault, postfx.RenderTargetSpec{})

	h, v := p.horizontal, p.vertical
	h.Resolution().SetScale(DefaultBlurScale)
	h.DeclareRenderTarget(postfx.BufferDefault, postfx.RenderTargetSpec{})
	h.source = func() backend.Texture { return bufferTexture(p.Input().DefaultBuffer()) }
	h.target = func() (backend.RenderTarget, int, int) {
		w, ht := h.Resolution().EffectiveSize()
		return h.Target(postfx.BufferDefault), w, ht
	}
	v.source = func() backend.Texture { return bufferTexture(h.Output().DefaultBuffer()) }
	v.target = func() (backend.RenderTarget, int, int) {
		w, ht := p.Resolution().EffectiveSize()
		return p.Target(postfx.BufferDefault), w, ht
	}
	p.AddSubpass(h)
	p.AddSubpass(v)

	if err := p.SetKernelSize(DefaultBlurKernelSize); err != nil {
		postfx.Logger().Warn("passes: default blur kernel", "err", err)
	}
	p.OnDispose(func() {
		h.program.destroy()
		v.program.destroy()
	})
	return p
}

// KernelSize returns the kernel width in texels.
func (p *GaussianBlurPass) KernelSize() int { return p.kernel.Size }

// Kernel returns the shared kernel. It must not be modified.
func (p *GaussianBlurPass) Kernel() *filter.GaussKernel { return p.kernel }

// SetKernelSize changes the kernel width. size must be odd; the programs
// are rebuilt on the next Compile or Render.
func (p *GaussianBlurPass) SetKernelSize(size int) error {
	k, err := filter.CachedGaussKernel(size)
	if err != nil {
		return err
	}
	if p.kernel == k {
		return nil
	}
	if err := p.horizontal.build(k); err != nil {
		return err
	}
	if err := p.vertical.build(k); err != nil {
		return err
	}
	p.kernel = k
	return nil
}

// Scale returns the resolution scale of the intermediate buffer.
func (p *GaussianBlurPass) Scale() float64 { return p.horizontal.Resolution().Scale() }

// SetScale sets the resolution scale of the intermediate buffer.
func (p *GaussianBlurPass) SetScale(scale float64) error {
	if scale <= 0 {
		return fmt.Errorf("passes: invalid blur scale %v", scale)
	}
	p.horizontal.Resolution().SetScale(scale)
	w, h := p.Resolution().BaseSize()
	return p.horizontal.SetSize(w, h)
}

// Compile builds both blur programs.
func (p *GaussianBlurPass) Compile(ctx context.Context) error {
	for _, s := range []*blurSubpass{p.horizontal, p.vertical} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.program.compile(p.Backend()); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

// Render runs the horizontal and then the vertical blur.
func (p *GaussianBlurPass) Render(frame postfx.Frame) error {
	return p.RenderSubpasses(frame)
}
