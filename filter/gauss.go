// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"errors"
	"fmt"

	"github.com/gogpu/postfx/internal/cache"
)

const (
	// MinKernelSize is the smallest supported kernel size.
	MinKernelSize = 3
	// MaxKernelSize is the largest supported kernel size.
	MaxKernelSize = 1020
	// DefaultEdgeBias is the number of tail coefficients trimmed from each
	// end of the binomial row.
	DefaultEdgeBias = 2
)

// ErrInvalidKernelSize is returned for kernel sizes that are even or
// outside [MinKernelSize, MaxKernelSize].
var ErrInvalidKernelSize = errors.New("filter: invalid kernel size")

// GaussKernel holds one half of a symmetric blur kernel, center first.
type GaussKernel struct {
	// Size is the full kernel width in texels.
	Size int

	// Weights and Offsets are the discrete taps from the center outward.
	// Weights[0] is the center; every other tap is applied on both sides.
	Weights []float64
	Offsets []float64

	// LinearWeights and LinearOffsets merge adjacent discrete taps into
	// one bilinear fetch at the weighted mean offset.
	LinearWeights []float64
	LinearOffsets []float64
}

// NewGaussKernel builds a kernel of the given odd size. edgeBias
// coefficients are dropped from both ends of the binomial row to skip
// taps that contribute almost nothing.
func NewGaussKernel(size, edgeBias int) (*GaussKernel, error) {
	if size < MinKernelSize || size > MaxKernelSize || size%2 == 0 {
		return nil, fmt.Errorf("%w: %d (want odd size in [%d, %d])",
			ErrInvalidKernelSize, size, MinKernelSize, MaxKernelSize)
	}
	if edgeBias < 0 {
		return nil, fmt.Errorf("filter: negative edge bias %d", edgeBias)
	}

	row := binomialRow(size + 2*edgeBias)
	coeffs := row[edgeBias : len(row)-edgeBias]

	var sum float64
	for _, c := range coeffs {
		sum += c
	}

	mid := (len(coeffs) - 1) / 2
	k := &GaussKernel{
		Size:    size,
		Weights: make([]float64, mid+1),
		Offsets: make([]float64, mid+1),
	}
	for i := 0; i <= mid; i++ {
		k.Weights[i] = coeffs[mid+i] / sum
		k.Offsets[i] = float64(i)
	}
	k.linearize()
	return k, nil
}

// linearize pairs taps (1,2), (3,4), ... and keeps a trailing odd tap as
// a single fetch, then renormalizes so the mirrored kernel sums to 1.
func (k *GaussKernel) linearize() {
	n := len(k.Weights)
	k.LinearWeights = make([]float64, 0, 1+n/2)
	k.LinearOffsets = make([]float64, 0, 1+n/2)

	k.LinearWeights = append(k.LinearWeights, k.Weights[0])
	k.LinearOffsets = append(k.LinearOffsets, 0)

	for i := 1; i < n; i += 2 {
		if i+1 == n {
			k.LinearWeights = append(k.LinearWeights, k.Weights[i])
			k.LinearOffsets = append(k.LinearOffsets, k.Offsets[i])
			break
		}
		w0, w1 := k.Weights[i], k.Weights[i+1]
		w := w0 + w1
		k.LinearWeights = append(k.LinearWeights, w)
		k.LinearOffsets = append(k.LinearOffsets, (k.Offsets[i]*w0+k.Offsets[i+1]*w1)/w)
	}

	var sum float64
	for _, w := range k.LinearWeights {
		sum += w
	}
	total := (sum - k.LinearWeights[0]*0.5) * 2
	if total != 0 {
		s := 1 / total
		for i := range k.LinearWeights {
			k.LinearWeights[i] *= s
		}
	}
}

// Steps returns the number of bilinear fetches on one side of the center.
func (k *GaussKernel) Steps() int {
	return len(k.LinearWeights) - 1
}

// binomialRow returns row n of Pascal's triangle (n coefficients) using
// two alternating buffers.
func binomialRow(n int) []float64 {
	switch n {
	case 0:
		return nil
	case 1:
		return []float64{1}
	}

	prev := make([]float64, n)
	cur := make([]float64, n)
	for y := 1; y <= n; y++ {
		for x := 0; x < y; x++ {
			if x == 0 || x == y-1 {
				cur[x] = 1
			} else {
				cur[x] = prev[x-1] + prev[x]
			}
		}
		prev, cur = cur, prev
	}
	return prev
}

var kernelCache = cache.New[int, *GaussKernel](32)

// CachedGaussKernel returns a shared kernel built with DefaultEdgeBias.
// The returned kernel must not be modified.
func CachedGaussKernel(size int) (*GaussKernel, error) {
	return kernelCache.GetOrCreate(size, func() (*GaussKernel, error) {
		return NewGaussKernel(size, DefaultEdgeBias)
	})
}
