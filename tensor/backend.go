// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/convkit/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - backend/cpu: Pure Go with gonum BLAS for the convolution GEMMs
//
// Example:
//
//	import (
//	    "github.com/born-ml/convkit/tensor"
//	    "github.com/born-ml/convkit/backend/cpu"
//	)
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)  // Uses backend.Add under the hood
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor // Element-wise addition.
	Mul(a, b *RawTensor) *RawTensor // Element-wise multiplication.

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor // 2D matrix multiplication.

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor // Reshape tensor.
	Transpose(t *RawTensor, axes ...int) *RawTensor  // Permute dimensions.

	// Manipulation operations.
	Cat(tensors []*RawTensor, dim int) *RawTensor          // Concatenate along dimension.
	Split(x *RawTensor, sizes []int, dim int) []*RawTensor // Split into consecutive parts.

	// Convolutional operations over [N, C, spatial...] inputs.
	Conv(input, kernel *RawTensor, params ConvParams) *RawTensor                   // N-D convolution.
	ConvTranspose(input, kernel *RawTensor, params ConvTransposeParams) *RawTensor // N-D transposed convolution.
	MaxPool(input *RawTensor, params PoolParams) *RawTensor                        // N-D max pooling.
	AvgPool(input *RawTensor, params PoolParams) *RawTensor                        // N-D average pooling.

	// Metadata.
	Name() string   // Backend name (e.g., "CPU").
	Device() Device // Device type.
}

// Compile-time check that internal Backend implements public Backend.
var _ Backend = tensor.Backend(nil)
