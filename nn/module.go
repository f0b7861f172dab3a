// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewConv(nn.DefaultConvConfig(3, 16), backend),
//	    nn.NewMaxPool(nn.DefaultPoolConfig(2), backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
//
// Methods:
//
//	Name() string
//	    Returns the parameter name (e.g., "conv2d.weight").
//
//	Tensor() *tensor.Tensor[float32, B]
//	    Returns the parameter tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// TryForward runs m.Forward and returns the error it panics with, if any.
//
// Example:
//
//	y, err := nn.TryForward(conv, x)
func TryForward[B tensor.Backend](m Module[B], input *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	return nn.TryForward(m, input)
}

// CountParameters returns the number of scalar values held by the module's
// parameters.
func CountParameters[B tensor.Backend](m Module[B]) int {
	return nn.CountParameters(m)
}

// Sequential chains modules; each output feeds the next module.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}
