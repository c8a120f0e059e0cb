//go:build !postfxdebug

package postfx

const debugAssertions = false
