// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// ConvConfig configures a convolution of any dimensionality.
type ConvConfig = nn.ConvConfig

// ConvOption modifies a ConvConfig.
type ConvOption = nn.ConvOption

// DefaultConvConfig returns a 3-wide, stride 1, same-padded convolution
// with bias, then applies opts.
//
// Example:
//
//	cfg := nn.DefaultConvConfig(16, 32, nn.WithStride(2), nn.WithGroups(4))
func DefaultConvConfig(inChannels, outChannels int, opts ...ConvOption) ConvConfig {
	return nn.DefaultConvConfig(inChannels, outChannels, opts...)
}

// WithKernelSize sets the same kernel size on every spatial axis.
func WithKernelSize(k int) ConvOption { return nn.WithKernelSize(k) }

// WithKernelSizePerAxis sets one kernel size per spatial axis.
func WithKernelSizePerAxis(k ...int) ConvOption { return nn.WithKernelSizePerAxis(k...) }

// WithStride sets the stride, one value or one per spatial axis.
func WithStride(s ...int) ConvOption { return nn.WithStride(s...) }

// WithPadding sets the padding.
func WithPadding(p Padding) ConvOption { return nn.WithPadding(p) }

// WithDilation sets the dilation, one value or one per spatial axis.
func WithDilation(d ...int) ConvOption { return nn.WithDilation(d...) }

// WithGroups sets the number of channel groups.
func WithGroups(groups int) ConvOption { return nn.WithGroups(groups) }

// WithBias enables or disables the bias term.
func WithBias(bias bool) ConvOption { return nn.WithBias(bias) }

// WithPaddingMode selects how padded positions are filled.
func WithPaddingMode(mode tensor.PaddingMode) ConvOption { return nn.WithPaddingMode(mode) }

// Convolution is a convolutional layer for one fixed input rank.
type Convolution[B tensor.Backend] = nn.Convolution[B]

// NewConv declares a convolution whose dimensionality follows its first
// input. Same padding is resolved from that input.
//
// It panics with *InvalidConfigurationError on a malformed config.
//
// Example:
//
//	backend := cpu.New()
//	conv := nn.NewConv(nn.DefaultConvConfig(3, 8), backend)
//	y := conv.Forward(x) // x: [2, 3, 16, 16] -> y: [2, 8, 16, 16]
func NewConv[B tensor.Backend](cfg ConvConfig, backend B) *Deferred[B, ConvConfig] {
	return nn.NewConv(cfg, backend)
}

// NewConv1D creates a convolution over [N, C, L] inputs. Padding must be
// explicit.
func NewConv1D[B tensor.Backend](cfg ConvConfig, backend B) (*Convolution[B], error) {
	return nn.NewConv1D(cfg, backend)
}

// NewConv2D creates a convolution over [N, C, H, W] inputs. Padding must
// be explicit.
func NewConv2D[B tensor.Backend](cfg ConvConfig, backend B) (*Convolution[B], error) {
	return nn.NewConv2D(cfg, backend)
}

// NewConv3D creates a convolution over [N, C, D, H, W] inputs. Padding
// must be explicit.
func NewConv3D[B tensor.Backend](cfg ConvConfig, backend B) (*Convolution[B], error) {
	return nn.NewConv3D(cfg, backend)
}

// ConvTransposeConfig configures a transposed convolution.
type ConvTransposeConfig = nn.ConvTransposeConfig

// DefaultConvTransposeConfig returns a 3-wide, stride 1, unpadded
// transposed convolution with bias.
func DefaultConvTransposeConfig(inChannels, outChannels int) ConvTransposeConfig {
	return nn.DefaultConvTransposeConfig(inChannels, outChannels)
}

// TransposedConvolution is a transposed convolution for one fixed input rank.
type TransposedConvolution[B tensor.Backend] = nn.TransposedConvolution[B]

// NewConvTranspose declares a transposed convolution whose dimensionality
// follows its first input.
func NewConvTranspose[B tensor.Backend](cfg ConvTransposeConfig, backend B) *Deferred[B, ConvTransposeConfig] {
	return nn.NewConvTranspose(cfg, backend)
}

// NewConvTranspose1D creates a transposed convolution over [N, C, L] inputs.
func NewConvTranspose1D[B tensor.Backend](cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	return nn.NewConvTranspose1D(cfg, backend)
}

// NewConvTranspose2D creates a transposed convolution over [N, C, H, W] inputs.
func NewConvTranspose2D[B tensor.Backend](cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	return nn.NewConvTranspose2D(cfg, backend)
}

// NewConvTranspose3D creates a transposed convolution over [N, C, D, H, W] inputs.
func NewConvTranspose3D[B tensor.Backend](cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	return nn.NewConvTranspose3D(cfg, backend)
}
