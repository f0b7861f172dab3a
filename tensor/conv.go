// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/convkit/internal/tensor"

// PaddingMode selects the values a convolution reads outside its input.
type PaddingMode = tensor.PaddingMode

// Padding modes.
const (
	PadZeros     PaddingMode = tensor.PadZeros     // Zeros.
	PadCircular  PaddingMode = tensor.PadCircular  // Wrap around to the opposite edge.
	PadReflect   PaddingMode = tensor.PadReflect   // Mirror without repeating the edge.
	PadReplicate PaddingMode = tensor.PadReplicate // Repeat the edge value.
)

// ParsePaddingMode parses "zeros", "circular", "reflect" or "replicate".
func ParsePaddingMode(s string) (PaddingMode, error) {
	return tensor.ParsePaddingMode(s)
}

// ConvParams describes an N-D convolution for Backend.Conv.
type ConvParams = tensor.ConvParams

// ConvTransposeParams describes an N-D transposed convolution for
// Backend.ConvTranspose.
type ConvTransposeParams = tensor.ConvTransposeParams

// PoolParams describes an N-D pooling window for Backend.MaxPool and
// Backend.AvgPool.
type PoolParams = tensor.PoolParams

// ConvOutputSize returns the extent of one spatial axis after a convolution:
//
//	floor((n + 2*padding - dilation*(kernel-1) - 1) / stride) + 1
//
// A result below 1 means the window does not fit.
func ConvOutputSize(n, kernel, stride, padding, dilation int) int {
	return tensor.ConvOutputSize(n, kernel, stride, padding, dilation)
}

// ConvTransposeOutputSize returns the extent of one spatial axis after a
// transposed convolution.
func ConvTransposeOutputSize(n, kernel, stride, padding, outputPadding, dilation int) int {
	return tensor.ConvTransposeOutputSize(n, kernel, stride, padding, outputPadding, dilation)
}

// PoolOutputSize returns the extent of one spatial axis after pooling.
func PoolOutputSize(n, kernel, stride, padding int) int {
	return tensor.PoolOutputSize(n, kernel, stride, padding)
}
