// Package nn implements the convolutional layers of convkit.
//
// This package provides:
//   - Module interface: Base interface for all layers
//   - Deferred: a rank-agnostic layer declaration that specializes into a
//     1D, 2D or 3D implementation on its first input
//   - Same padding: resolution of extent-preserving padding at specialization
//   - Convolution, TransposedConvolution, Pool: the concrete N-D operators
//   - Blocks: Residual, Dense, Poly, MPoly, WayPoly, ChannelShuffle,
//     ChannelSplit, Fire, SqueezeExcitation and Sequential
//   - Linear, ReLU and Sigmoid: the dense pieces of SqueezeExcitation
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/convkit/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential[Backend](
//	    nn.NewConv(nn.DefaultConvConfig(3, 16), backend),
//	    nn.NewMaxPool(nn.DefaultPoolConfig(2), backend),
//	    nn.NewConv(nn.DefaultConvConfig(16, 32), backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// Configuration and shape errors are raised as panics carrying a
	// typed error (see TryForward).
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	//
	// Returns an empty slice for modules without trainable parameters
	// (e.g., pooling) and for deferred layers that have not specialized yet.
	Parameters() []*Parameter[B]
}

// TryForward runs m.Forward and returns the error it panics with, if any.
// Panics that do not carry an error are re-raised.
func TryForward[B tensor.Backend](m Module[B], input *tensor.Tensor[float32, B]) (output *tensor.Tensor[float32, B], err error) {
	err = exceptions.TryCatch[error](func() {
		output = m.Forward(input)
	})
	if err != nil {
		output = nil
	}
	return output, err
}

// CountParameters returns the total number of scalar values held by the
// module's parameters.
func CountParameters[B tensor.Backend](m Module[B]) int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Tensor().NumElements()
	}
	return total
}
