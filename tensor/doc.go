// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor API of convkit.
//
// Tensors are stored contiguously in row-major order. Convolutional layers
// use the channels-first layout [N, C, spatial...] with one, two or three
// spatial axes.
//
// # Types
//
//   - Tensor[T, B]: generic tensor over float32 or float64 data
//   - RawTensor: untyped storage used by backends
//   - Backend: compute interface implemented by backend/cpu
//   - Shape, DataType, Device: core type definitions
//   - PaddingMode: how convolutions fill positions outside the input
//
// # Example
//
//	backend := cpu.New()
//	x := tensor.Randn[float32](tensor.Shape{2, 3, 16, 16}, backend)
//	y := x.Add(tensor.Ones[float32](tensor.Shape{1, 3, 1, 1}, backend))
//
// # Output sizes
//
// ConvOutputSize, ConvTransposeOutputSize and PoolOutputSize compute the
// extent of one spatial axis after the corresponding operator, which lets
// callers plan layer stacks without running them.
package tensor
