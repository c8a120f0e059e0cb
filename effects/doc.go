// Package effects provides stock effects for postfx.EffectPass.
//
// Every effect embeds postfx.BaseEffect. Uniform setters take effect on
// the next frame without recompiling; attributes, defines and blend modes
// are read when a material is built.
//
// Sharpen and ChromaticAberration sample neighboring texels and carry
// postfx.AttributeConvolution, so they cannot share one EffectPass.
package effects
