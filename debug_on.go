//go:build postfxdebug

package postfx

// debugAssertions turns resource lifetime violations into panics.
const debugAssertions = true
