package postfx

import (
	"fmt"
	"maps"
	"strings"

	"github.com/gogpu/postfx/backend"
	"github.com/gogpu/postfx/internal/cache"
)

// Material cache defaults.
const (
	// DefaultMaxOptionalEffects is the largest number of optional effects
	// for which every enabled subset gets its own cached program.
	DefaultMaxOptionalEffects = 6

	// DefaultFallbackCacheSize is the number of programs kept when there
	// are more optional effects than DefaultMaxOptionalEffects.
	DefaultFallbackCacheSize = 1

	// maxCachedOptionalEffects bounds the ceiling so that subset masks and
	// the 2^k capacity fit in 64 bits.
	maxCachedOptionalEffects = 62
)

// MaterialCompiler compiles fullscreen programs. backend.Backend
// implements it.
type MaterialCompiler interface {
	CompileProgram(desc backend.ProgramDescriptor) (backend.Program, error)
}

// Material is a compiled merge of one subset of effects.
type Material struct {
	// Key identifies the subset: one character per optional effect, '1'
	// when enabled.
	Key     string
	Program backend.Program
	Shader  *FullscreenProgram
	Frame   *FrameUniforms
	Data    *EffectShaderData
}

// Destroy releases the compiled program.
func (m *Material) Destroy() {
	if m.Program != nil {
		m.Program.Destroy()
		m.Program = nil
	}
}

// MaterialManagerOption configures an EffectMaterialManager.
type MaterialManagerOption func(*EffectMaterialManager)

// WithMaxOptionalEffects sets the optional effect count above which the
// fallback cache is used. n is clamped to [0, 62].
func WithMaxOptionalEffects(n int) MaterialManagerOption {
	return func(m *EffectMaterialManager) {
		m.maxOptional = min(max(n, 0), maxCachedOptionalEffects)
	}
}

// WithFallbackCacheSize sets the capacity of the fallback cache.
func WithFallbackCacheSize(n int) MaterialManagerOption {
	return func(m *EffectMaterialManager) { m.fallbackSize = max(n, 1) }
}

// WithMaterialLabel sets the label of compiled programs.
func WithMaterialLabel(label string) MaterialManagerOption {
	return func(m *EffectMaterialManager) { m.label = label }
}

// EffectMaterialManager caches one compiled program per subset of enabled
// optional effects. Mandatory effects are part of every program.
//
// With at most MaxOptionalEffects optional effects every subset is cached
// as it is first requested, up to 2^k programs. With more, only the
// FallbackCacheSize most recently used programs are kept.
type EffectMaterialManager struct {
	compiler     MaterialCompiler
	label        string
	maxOptional  int
	fallbackSize int

	effects  []Effect
	optional []Effect
	defines  map[string]string

	materials map[uint64]*Material
	fallback  *cache.LRU[string, *Material]
}

// NewEffectMaterialManager returns a manager compiling with c.
func NewEffectMaterialManager(c MaterialCompiler, opts ...MaterialManagerOption) *EffectMaterialManager {
	m := &EffectMaterialManager{
		compiler:     c,
		label:        "effects",
		maxOptional:  DefaultMaxOptionalEffects,
		fallbackSize: DefaultFallbackCacheSize,
		defines:      make(map[string]string),
		materials:    make(map[uint64]*Material),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCompiler replaces the compiler and drops every cached program.
func (m *EffectMaterialManager) SetCompiler(c MaterialCompiler) {
	m.compiler = c
	m.invalidate()
}

// SetEffects replaces the effect list. Every cached program is destroyed.
// Two effects with the convolution attribute are rejected.
func (m *EffectMaterialManager) SetEffects(effects []Effect) error {
	conv := 0
	for _, e := range effects {
		if e.Attributes()&AttributeConvolution != 0 {
			conv++
		}
	}
	if conv > 1 {
		return fmt.Errorf("%w: %d effects", ErrConvolutionConflict, conv)
	}

	m.invalidate()
	m.fallback = nil
	m.effects = append(m.effects[:0:0], effects...)
	m.optional = m.optional[:0]
	for _, e := range effects {
		if e.Optional() {
			m.optional = append(m.optional, e)
		}
	}
	if len(m.optional) > m.maxOptional {
		m.fallback = cache.New[string, *Material](m.fallbackSize)
		m.fallback.OnEvict(func(key string, mat *Material) {
			Logger().Debug("postfx: evict material", "key", key)
			mat.Destroy()
		})
	}
	return nil
}

// Effects returns the effect list.
func (m *EffectMaterialManager) Effects() []Effect {
	return m.effects
}

// SetDefines replaces the defines shared by every program. Cached
// programs are destroyed when the defines change.
func (m *EffectMaterialManager) SetDefines(defines map[string]string) {
	if maps.Equal(m.defines, defines) {
		return
	}
	m.defines = maps.Clone(defines)
	if m.defines == nil {
		m.defines = make(map[string]string)
	}
	m.invalidate()
}

// Key returns the cache key of the current enabled subset.
func (m *EffectMaterialManager) Key() string {
	var sb strings.Builder
	for _, e := range m.optional {
		if e.Enabled() {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func (m *EffectMaterialManager) mask() uint64 {
	var mask uint64
	for i, e := range m.optional {
		if e.Enabled() {
			mask |= 1 << i
		}
	}
	return mask
}

// Material returns the program for the currently enabled effects,
// compiling it on first use.
func (m *EffectMaterialManager) Material() (*Material, error) {
	if m.fallback != nil {
		return m.fallback.GetOrCreate(m.Key(), m.build)
	}
	mask := m.mask()
	if mat, ok := m.materials[mask]; ok {
		return mat, nil
	}
	mat, err := m.build()
	if err != nil {
		return nil, err
	}
	m.materials[mask] = mat
	return mat, nil
}

// CacheLen returns the number of cached programs.
func (m *EffectMaterialManager) CacheLen() int {
	if m.fallback != nil {
		return m.fallback.Len()
	}
	return len(m.materials)
}

// CacheCapacity returns the largest number of programs the cache can hold.
func (m *EffectMaterialManager) CacheCapacity() int {
	if m.fallback != nil {
		return m.fallback.Capacity()
	}
	return 1 << len(m.optional)
}

func (m *EffectMaterialManager) build() (*Material, error) {
	if m.compiler == nil {
		return nil, ErrNoBackend
	}
	key := m.Key()
	data := NewEffectShaderData()
	for _, e := range m.effects {
		if e.Optional() && !e.Enabled() {
			continue
		}
		if err := data.Integrate(e.ID(), e); err != nil {
			return nil, err
		}
	}

	label := m.label
	if key != "" {
		label += "[" + key + "]"
	}
	p, frame, err := data.Program(label)
	if err != nil {
		return nil, err
	}
	maps.Copy(p.Defines, m.defines)

	prog, err := m.compiler.CompileProgram(p.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("postfx: compile %s: %w", label, err)
	}
	Logger().Debug("postfx: compiled material", "label", label, "effects", data.Effects)
	return &Material{Key: key, Program: prog, Shader: p, Frame: frame, Data: data}, nil
}

func (m *EffectMaterialManager) invalidate() {
	for k, mat := range m.materials {
		mat.Destroy()
		delete(m.materials, k)
	}
	if m.fallback != nil {
		m.fallback.Clear()
	}
}

// Dispose destroys every cached program.
func (m *EffectMaterialManager) Dispose() {
	m.invalidate()
}

// applyOptions reconfigures cache limits and rebuilds the cache policy.
func (m *EffectMaterialManager) applyOptions(opts ...MaterialManagerOption) error {
	if len(opts) == 0 {
		return nil
	}
	for _, opt := range opts {
		opt(m)
	}
	defines := maps.Clone(m.defines)
	if err := m.SetEffects(m.effects); err != nil {
		return err
	}
	m.defines = defines
	return nil
}
