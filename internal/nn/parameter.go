package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are the weights and biases of layers. A deferred layer
// creates its parameters when it specializes.
//
// Example:
//
//	conv := nn.NewConv(nn.DefaultConvConfig(3, 8), backend)
//	conv.Forward(input)
//	for _, p := range conv.Parameters() {
//	    fmt.Println(p.Name(), p.Tensor().Shape())
//	}
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "conv2d.weight")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
}

// NewParameter creates a new trainable parameter.
//
// The parameter tensor should be initialized before creating the Parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// String returns the name and shape, e.g. "conv2d.weight[8 3 3 3]".
func (p *Parameter[B]) String() string {
	return fmt.Sprintf("%s%v", p.name, p.tensor.Shape())
}
