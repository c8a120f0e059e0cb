// Package postfx orchestrates GPU post-processing.
//
// # Overview
//
// A [RenderPipeline] runs an ordered list of passes. Each pass reads
// textures and uniforms from its [Input] and publishes render targets and
// their textures on its [Output]. Passes are connected explicitly by
// sharing resources: a downstream Input holds the same [Resource] as the
// upstream Output, so reallocations on resize are visible to every
// consumer without rewiring.
//
// The package never calls a graphics API itself. All allocation,
// compilation and drawing goes through a backend.Backend; see
// backend/headless for a CPU implementation and backend/wgpu for a HAL
// implementation.
//
// # Quick Start
//
//	b := headless.New()
//	pl := postfx.NewRenderPipeline(b)
//	defer pl.Dispose()
//
//	bg := passes.NewClearPass(gputypes.ColorBlack)
//	fx, err := postfx.NewEffectPass(effects.NewVignette(0.5, 0.6), effects.NewNoise(0.2, true))
//	if err != nil {
//		return err
//	}
//	fx.Input().SetDefaultBuffer(bg.Output().DefaultBuffer())
//
//	pl.SetSize(1280, 720)
//	pl.Add(bg, fx)
//	if err := pl.Compile(ctx); err != nil {
//		return err
//	}
//	err = pl.Render(elapsed)
//
// # Effects
//
// An [Effect] is a WGSL fragment defining mainImage and/or mainUv. An
// [EffectPass] merges its effects into one program with
// [EffectShaderData]: identifiers are prefixed per effect, calls are
// chained in declared order and every result is blended with the running
// color. Optional effects can be toggled at runtime; the
// [EffectMaterialManager] caches one program per enabled subset up to a
// ceiling of optional effects and falls back to a small LRU above it.
//
// # G-Buffer
//
// Passes request G-Buffer components with Input.RequireGBuffer. Before
// each frame the pipeline hands the union of all requests to passes
// implementing [GBufferProvider], which lay out a multi-attachment target
// as described by the [GBufferConfig] and publish one buffer per
// component.
//
// # Resources
//
// A [ResourceManager] tracks the resources of several pipelines. Disposing
// a pipeline sweeps only resources that no remaining pipeline reaches.
//
// # Logging
//
// The package is silent by default. Install a *slog.Logger with
// [SetLogger] to see compile and sweep diagnostics.
package postfx
