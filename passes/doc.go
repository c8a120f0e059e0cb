// Package passes provides concrete render passes for postfx pipelines.
//
// Every pass embeds *postfx.BasePass and draws through the pipeline
// backend. Fullscreen passes share the binding layout of package backend:
// uniforms at binding 0, inputSampler at binding 1 and textures from
// binding 2.
//
// A geometry pass publishes its depth buffer once it is attached, so wire
// consumers after adding it:
//
//	geo := passes.NewGeometryPass(scene)
//	pl.Add(geo)
//	fx, _ := postfx.NewEffectPass(effects.NewVignette(0.5, 0.5))
//	fx.Input().SetDefaultBuffer(geo.Output().DefaultBuffer())
//	fx.Input().SetBuffer(postfx.BufferDepth, geo.Output().Buffer(postfx.BufferDepth))
//	pl.Add(fx)
package passes
