// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides dimension-polymorphic convolutional layers and the
// blocks built from them.
//
// # Overview
//
// This package contains:
//   - Deferred layers: NewConv, NewConvTranspose, NewMaxPool, NewAvgPool
//   - Fixed-rank layers: NewConv1D/2D/3D, NewConvTranspose1D/2D/3D, pools
//   - Blocks: Residual, Dense, Poly, MPoly, WayPoly, Fire, SqueezeExcitation, ChannelShuffle
//   - Dense pieces: Linear, ReLU, Sigmoid
//   - Utilities: Sequential, Module interface, Parameter, TryForward
//
// # Deferred Specialization
//
// A deferred layer is declared without knowing whether it will see 1D, 2D
// or 3D data. The first Forward inspects the input rank (3, 4 or 5 for
// [N, C, L], [N, C, H, W] and [N, C, D, H, W]) and builds the matching
// concrete layer exactly once. Every later call delegates to it.
//
//	backend := cpu.New()
//	conv := nn.NewConv(nn.DefaultConvConfig(3, 16), backend)
//
//	y := conv.Forward(tensor.Randn[float32](tensor.Shape{8, 3, 32, 32}, backend))
//	rank, _ := conv.Rank() // nn.Rank4
//
// Parameters is empty until the layer has specialized.
//
// # Same Padding
//
// Convolutions default to same padding. It is resolved from the spatial
// extents of the first input:
//
//	padding_i = ceil((n_i*s_i - n_i + d_i*(k_i-1)) / 2)
//
// which keeps every extent unchanged at stride 1. Same padding requires odd
// kernel sizes; even ones fail with *PaddingError.
//
// # Errors
//
// Forward panics with a typed error; TryForward recovers it:
//
//	y, err := nn.TryForward(conv, x)
//	var rankErr *nn.UnsupportedRankError
//	if errors.As(err, &rankErr) { ... }
//
// Specialization failures are permanent for the layer.
//
// # Sequential Models
//
// Deferred layers compose into models whose dimensionality is fixed by
// the first batch:
//
//	model := nn.NewSequential(
//	    nn.NewConv(nn.DefaultConvConfig(3, 32), backend),
//	    nn.NewMaxPool(nn.DefaultPoolConfig(2), backend),
//	    nn.NewFire(32, 64, 0, 0.5, backend),
//	)
package nn
