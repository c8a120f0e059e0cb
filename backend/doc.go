// Package backend defines the boundary between the post-processing core and
// a concrete GPU implementation.
//
// The core never issues graphics API calls itself. Every pass allocates
// render targets, compiles programs and submits fullscreen draws through a
// [Backend]. Two implementations ship with the module:
//
//   - backend/headless: CPU images and recorded draw calls, for tests and
//     offline tooling
//   - backend/wgpu: a HAL implementation over github.com/gogpu/wgpu
//
// # Binding layout
//
// Programs use a single bind group with a fixed layout:
//
//	@group(0) @binding(0) uniform block (BindingUniforms)
//	@group(0) @binding(1) filtering sampler (BindingSampler)
//	@group(0) @binding(2+i) texture i of ProgramDescriptor.Textures
//
// Depth textures are declared as texture_depth_2d and must be read with
// textureLoad.
package backend
