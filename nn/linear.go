// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// Linear is a fully connected layer: y = x @ W.T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a Linear layer with Xavier weights and zero bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// ReLU applies max(0, x) element-wise.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid applies 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}
