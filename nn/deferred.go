// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// Rank is the number of dimensions of a layer input, batch and channel
// axes included.
type Rank = nn.Rank

// Supported input ranks.
const (
	Rank3 Rank = nn.Rank3 // [N, C, L]
	Rank4 Rank = nn.Rank4 // [N, C, H, W]
	Rank5 Rank = nn.Rank5 // [N, C, D, H, W]
)

// Factory builds the concrete layer for one input rank from a config.
type Factory[B tensor.Backend, C any] = nn.Factory[B, C]

// Hook runs once when a deferred layer specializes. It receives the shape
// of the first input and calls the factory, possibly with a derived config.
type Hook[B tensor.Backend, C any] = nn.Hook[B, C]

// Deferred is a layer whose concrete implementation is chosen by the rank
// of its first input.
//
// Methods:
//
//	Specialize(input tensor.Shape) (Module[B], error)
//	    Builds the delegate for the input rank, once.
//
//	Forward(input) *tensor.Tensor[float32, B]
//	    Specializes if needed, then delegates. Panics with a typed error.
//
//	Parameters() []*Parameter[B]
//	    Delegate parameters; empty before specialization.
//
//	Delegate() Module[B], Rank() (Rank, bool), Specialized() bool, Err() error
//	    Specialization state.
type Deferred[B tensor.Backend, C any] = nn.Deferred[B, C]

// NewDeferred declares a deferred layer. factories maps each supported
// rank to the constructor of its concrete layer. A nil hook calls the
// factory with cfg unchanged.
//
// Example:
//
//	layer := nn.NewDeferred("scale", map[nn.Rank]nn.Factory[B, Config]{
//	    nn.Rank4: newScale2D,
//	}, nil, Config{Factor: 2}, backend)
func NewDeferred[B tensor.Backend, C any](name string, factories map[Rank]Factory[B, C], hook Hook[B, C], cfg C, backend B) *Deferred[B, C] {
	return nn.NewDeferred(name, factories, hook, cfg, backend)
}

// DirectHook calls the factory with the declared config.
func DirectHook[B tensor.Backend, C any](input tensor.Shape, factory Factory[B, C], cfg C, backend B) (Module[B], error) {
	return nn.DirectHook(input, factory, cfg, backend)
}

// UnsupportedRankError reports an input rank with no registered factory.
type UnsupportedRankError = nn.UnsupportedRankError

// PaddingError reports same padding requested with an even kernel size.
type PaddingError = nn.PaddingError

// InvalidConfigurationError reports a malformed layer configuration or an
// input the configured layer cannot process.
type InvalidConfigurationError = nn.InvalidConfigurationError

// ConfigurationMismatchError reports an input whose rank differs from the
// one the layer specialized for.
type ConfigurationMismatchError = nn.ConfigurationMismatchError

// RankOf returns the rank of an input shape.
func RankOf(shape tensor.Shape) Rank {
	return nn.RankOf(shape)
}
