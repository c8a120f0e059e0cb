package shader

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Names of the chunks installed by Registry.Init.
const (
	ChunkFullscreenVertex = "fullscreen_vertex"
	ChunkBlendFunctions   = "blend_functions"
	ChunkColorUtils       = "color_utils"
	ChunkDepthUtils       = "depth_utils"
)

// ErrInvalidChunk is returned when registering a chunk without a name.
var ErrInvalidChunk = errors.New("shader: invalid chunk")

// Registry holds named WGSL chunks for #include.
//
// A Registry is created explicitly and handed to every backend that
// preprocesses sources; there is no package-level registry.
type Registry struct {
	once   sync.Once
	mu     sync.RWMutex
	chunks map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{chunks: make(map[string]string)}
}

// Init installs the built-in chunks. Calling it again is a no-op.
func (r *Registry) Init() *Registry {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.chunks[ChunkFullscreenVertex] = fullscreenVertex
		r.chunks[ChunkBlendFunctions] = blendFunctions
		r.chunks[ChunkColorUtils] = colorUtils
		r.chunks[ChunkDepthUtils] = depthUtils
	})
	return r
}

// Register adds or replaces a chunk.
func (r *Registry) Register(name, source string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidChunk)
	}
	r.mu.Lock()
	r.chunks[name] = source
	r.mu.Unlock()
	return nil
}

// Chunk returns the source registered under name.
func (r *Registry) Chunk(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.chunks[name]
	return src, ok
}

// Names returns the registered chunk names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chunks))
	for name := range r.chunks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// fullscreenVertex draws one oversized triangle covering the viewport.
const fullscreenVertex = `struct VertexOutput {
	@builtin(position) position: vec4<f32>,
	@location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) vertexIndex: u32) -> VertexOutput {
	var out: VertexOutput;
	let x = f32((vertexIndex << 1u) & 2u);
	let y = f32(vertexIndex & 2u);
	out.position = vec4<f32>(x * 2.0 - 1.0, 1.0 - y * 2.0, 0.0, 1.0);
	out.uv = vec2<f32>(x, y);
	return out;
}
`

const blendFunctions = `fn blendSrc(x: vec4<f32>, y: vec4<f32>, opacity: f32) -> vec4<f32> {
	return mix(x, y, opacity);
}

fn blendNormal(x: vec4<f32>, y: vec4<f32>, opacity: f32) -> vec4<f32> {
	let c = vec4<f32>(mix(x.rgb, y.rgb, y.a), max(x.a, y.a));
	return mix(x, c, opacity);
}

fn blendAdd(x: vec4<f32>, y: vec4<f32>, opacity: f32) -> vec4<f32> {
	return mix(x, min(x + y, vec4<f32>(1.0)), opacity);
}

fn blendMultiply(x: vec4<f32>, y: vec4<f32>, opacity: f32) -> vec4<f32> {
	return mix(x, x * y, opacity);
}

fn blendScreen(x: vec4<f32>, y: vec4<f32>, opacity: f32) -> vec4<f32> {
	return mix(x, x + y - x * y, opacity);
}
`

const colorUtils = `fn luminance(rgb: vec3<f32>) -> f32 {
	return dot(rgb, vec3<f32>(0.2126, 0.7152, 0.0722));
}
`

const depthUtils = `fn linearizeDepth(depth: f32, near: f32, far: f32) -> f32 {
	return (near * far) / (far - depth * (far - near));
}

fn viewZToOrthoDepth(viewZ: f32, near: f32, far: f32) -> f32 {
	return (viewZ + near) / (near - far);
}
`
