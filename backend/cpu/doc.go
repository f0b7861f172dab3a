// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Im2col convolutions over 1, 2 or 3 spatial axes, with gonum BLAS GEMMs
//   - Stride, dilation, groups and four padding modes
//   - Col2im transposed convolutions
//   - Max and average pooling
//   - Float32 and Float64 support
//   - NumPy-compatible broadcasting
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/convkit/backend/cpu"
//	    "github.com/born-ml/convkit/nn"
//	    "github.com/born-ml/convkit/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    conv := nn.NewConv(nn.DefaultConvConfig(3, 16), backend)
//	    x := tensor.Randn[float32](tensor.Shape{1, 3, 32, 32}, backend)
//	    y := conv.Forward(x) // [1, 16, 32, 32]
//	}
//
// # Parallelism
//
// Convolutions parallelize over (batch, group) pairs and pooling over
// (batch, channel) planes. DefaultConfig uses one worker per physical
// core as reported by cpuid.
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
