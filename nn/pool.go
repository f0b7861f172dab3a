// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// PoolConfig configures a pooling window. An empty Stride defaults to the
// kernel size.
type PoolConfig = nn.PoolConfig

// DefaultPoolConfig returns a non-overlapping, unpadded window of size k.
func DefaultPoolConfig(k int) PoolConfig {
	return nn.DefaultPoolConfig(k)
}

// Pool is a max or average pooling layer for one fixed input rank.
type Pool[B tensor.Backend] = nn.Pool[B]

// NewMaxPool declares max pooling whose dimensionality follows its first input.
//
// Example:
//
//	pool := nn.NewMaxPool(nn.DefaultPoolConfig(2), backend)
func NewMaxPool[B tensor.Backend](cfg PoolConfig, backend B) *Deferred[B, PoolConfig] {
	return nn.NewMaxPool(cfg, backend)
}

// NewAvgPool declares average pooling whose dimensionality follows its
// first input. Padded positions count as zeros.
func NewAvgPool[B tensor.Backend](cfg PoolConfig, backend B) *Deferred[B, PoolConfig] {
	return nn.NewAvgPool(cfg, backend)
}

// NewMaxPool1D creates max pooling over [N, C, L] inputs.
func NewMaxPool1D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return nn.NewMaxPool1D(cfg, backend)
}

// NewMaxPool2D creates max pooling over [N, C, H, W] inputs.
func NewMaxPool2D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return nn.NewMaxPool2D(cfg, backend)
}

// NewMaxPool3D creates max pooling over [N, C, D, H, W] inputs.
func NewMaxPool3D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return nn.NewMaxPool3D(cfg, backend)
}

// NewAvgPool1D creates average pooling over [N, C, L] inputs.
func NewAvgPool1D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return nn.NewAvgPool1D(cfg, backend)
}

// NewAvgPool2D creates average pooling over [N, C, H, W] inputs.
func NewAvgPool2D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return nn.NewAvgPool2D(cfg, backend)
}

// NewAvgPool3D creates average pooling over [N, C, D, H, W] inputs.
func NewAvgPool3D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return nn.NewAvgPool3D(cfg, backend)
}
