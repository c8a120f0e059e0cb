// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package filter

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-6

func TestNewGaussKernelRejectsInvalidSize(t *testing.T) {
	for _, size := range []int{-1, 0, 1, 2, 4, 1021, 2048} {
		if _, err := NewGaussKernel(size, DefaultEdgeBias); !errors.Is(err, ErrInvalidKernelSize) {
			t.Errorf("NewGaussKernel(%d) error = %v, want ErrInvalidKernelSize", size, err)
		}
	}
}

func TestGaussKernelNormalized(t *testing.T) {
	for size := MinKernelSize; size <= 255; size += 2 {
		k, err := NewGaussKernel(size, DefaultEdgeBias)
		if err != nil {
			t.Fatalf("NewGaussKernel(%d): %v", size, err)
		}

		sum := k.Weights[0]
		for _, w := range k.Weights[1:] {
			sum += 2 * w
		}
		if math.Abs(sum-1) > epsilon {
			t.Errorf("size %d: mirrored weight sum = %v, want 1", size, sum)
		}

		var lsum float64
		for _, w := range k.LinearWeights {
			lsum += w
		}
		if got := (lsum - k.LinearWeights[0]/2) * 2; math.Abs(got-1) > epsilon {
			t.Errorf("size %d: linear weight identity = %v, want 1", size, got)
		}
	}
}

func TestGaussKernelMaxSize(t *testing.T) {
	k, err := NewGaussKernel(MaxKernelSize-1, DefaultEdgeBias)
	if err != nil {
		t.Fatalf("NewGaussKernel: %v", err)
	}
	for i, w := range k.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			t.Fatalf("Weights[%d] = %v", i, w)
		}
	}
}

func TestGaussKernelSmallest(t *testing.T) {
	// Row 7 of Pascal's triangle is 1 6 15 20 15 6 1; trimming two from
	// each end leaves 15 20 15.
	k, err := NewGaussKernel(3, 2)
	if err != nil {
		t.Fatalf("NewGaussKernel: %v", err)
	}
	want := []float64{20.0 / 50, 15.0 / 50}
	if len(k.Weights) != len(want) {
		t.Fatalf("len(Weights) = %d, want %d", len(k.Weights), len(want))
	}
	for i := range want {
		if math.Abs(k.Weights[i]-want[i]) > epsilon {
			t.Errorf("Weights[%d] = %v, want %v", i, k.Weights[i], want[i])
		}
	}
	if k.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", k.Steps())
	}
}

func TestGaussKernelLinearOffsets(t *testing.T) {
	k, err := NewGaussKernel(9, DefaultEdgeBias)
	if err != nil {
		t.Fatalf("NewGaussKernel: %v", err)
	}
	// 5 discrete taps collapse to center + 2 bilinear fetches.
	if got, want := len(k.LinearWeights), 3; got != want {
		t.Fatalf("len(LinearWeights) = %d, want %d", got, want)
	}
	for i := 1; i < len(k.LinearOffsets); i++ {
		lo, hi := k.Offsets[2*i-1], k.Offsets[2*i]
		if o := k.LinearOffsets[i]; o <= lo || o >= hi {
			t.Errorf("LinearOffsets[%d] = %v, want in (%v, %v)", i, o, lo, hi)
		}
	}
}

func TestGaussKernelNoEdgeBias(t *testing.T) {
	k, err := NewGaussKernel(5, 0)
	if err != nil {
		t.Fatalf("NewGaussKernel: %v", err)
	}
	// 1 4 6 4 1
	if got, want := k.Weights[0], 6.0/16; math.Abs(got-want) > epsilon {
		t.Errorf("Weights[0] = %v, want %v", got, want)
	}
}

func TestCachedGaussKernel(t *testing.T) {
	a, err := CachedGaussKernel(15)
	if err != nil {
		t.Fatalf("CachedGaussKernel: %v", err)
	}
	b, _ := CachedGaussKernel(15)
	if a != b {
		t.Error("CachedGaussKernel returned distinct kernels for the same size")
	}
	if _, err := CachedGaussKernel(4); !errors.Is(err, ErrInvalidKernelSize) {
		t.Errorf("CachedGaussKernel(4) error = %v, want ErrInvalidKernelSize", err)
	}
}

func BenchmarkNewGaussKernel(b *testing.B) {
	for b.Loop() {
		_, _ = NewGaussKernel(35, DefaultEdgeBias)
	}
}
