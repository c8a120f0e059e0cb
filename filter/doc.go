// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package filter generates convolution kernels for blur passes.
//
// [GaussKernel] builds binomial weights from a row of Pascal's triangle
// together with a linearly sampled variant that halves the number of
// texture fetches by relying on hardware bilinear filtering.
package filter
