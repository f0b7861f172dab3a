// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// Spatial is a per-axis layer parameter: one value for every spatial axis,
// or a single value applied to all of them.
type Spatial = nn.Spatial

// Padding is same padding or an explicit per-axis amount.
type Padding = nn.Padding

// Same requests padding that keeps every spatial extent unchanged at
// stride 1.
func Same() Padding {
	return nn.Same()
}

// Explicit pads every spatial axis by the given amounts on both sides.
func Explicit(p ...int) Padding {
	return nn.Explicit(p...)
}

// ParsePadding parses "same" or a comma-separated list of amounts.
func ParsePadding(s string) (Padding, error) {
	return nn.ParsePadding(s)
}

// ResolveSamePadding returns the symmetric padding per spatial axis that
// keeps the extents unchanged at stride 1.
//
// Example:
//
//	p, err := nn.ResolveSamePadding([]int{7, 9}, nn.Spatial{3}, nn.Spatial{1}, nn.Spatial{1})
//	// p = [1 1]
func ResolveSamePadding(spatial []int, kernelSize, stride, dilation Spatial) ([]int, error) {
	return nn.ResolveSamePadding(spatial, kernelSize, stride, dilation)
}

// SamePaddingHook resolves same padding from the first input before
// building a convolution. NewConv installs it.
func SamePaddingHook[B tensor.Backend](input tensor.Shape, factory Factory[B, ConvConfig], cfg ConvConfig, backend B) (Module[B], error) {
	return nn.SamePaddingHook(input, factory, cfg, backend)
}
