// Package headless implements backend.Backend on the CPU.
//
// Textures are image.RGBA (color) or image.Gray16 (depth) buffers. Programs
// are preprocessed and, unless disabled, compiled to SPIR-V so that shader
// errors surface exactly as they would on a GPU. Draw calls are validated
// and recorded; the pixels of the first bound texture are resampled into the
// target so data flows through a pipeline as a pass-through.
//
// The backend is meant for tests, CI machines without a GPU, and offline
// tooling that inspects the generated programs.
package headless
