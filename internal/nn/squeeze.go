package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// SqueezeExcitation rescales the channels of its input by learned
// excitation weights in [0, 1]:
//
//	s = mean of x over the spatial axes        [N, C]
//	e = gate(second(activation(first(s))))     [N, C]
//	y = x * e, broadcast over the spatial axes
//
// first is Linear(C, hidden) and second Linear(hidden, C). The block works on
// inputs of any rank >= 3 without specializing.
type SqueezeExcitation[B tensor.Backend] struct {
	inChannels int
	hidden     int
	first      *Linear[B]
	second     *Linear[B]
	activation Module[B]
	gate       Module[B]
}

// NewSqueezeExcitation creates a SqueezeExcitation block with ReLU
// activation and Sigmoid gate. hidden <= 0 selects in/16. It panics with
// *InvalidConfigurationError when the hidden size is not positive.
func NewSqueezeExcitation[B tensor.Backend](inChannels, hidden int, backend B) *SqueezeExcitation[B] {
	if hidden <= 0 {
		hidden = inChannels / 16
	}
	if inChannels <= 0 || hidden <= 0 {
		panic(invalidConfigf("squeeze_excitation", "in_channels=%d and hidden=%d must be positive (hidden defaults to in_channels/16)",
			inChannels, hidden))
	}
	return &SqueezeExcitation[B]{
		inChannels: inChannels,
		hidden:     hidden,
		first:      NewLinear(inChannels, hidden, backend),
		second:     NewLinear(hidden, inChannels, backend),
		activation: NewReLU[B](),
		gate:       NewSigmoid[B](),
	}
}

// WithActivations replaces the hidden activation and the gate. Nil keeps
// the current module.
func (se *SqueezeExcitation[B]) WithActivations(activation, gate Module[B]) *SqueezeExcitation[B] {
	if activation != nil {
		se.activation = activation
	}
	if gate != nil {
		se.gate = gate
	}
	return se
}

// Forward performs the forward pass.
func (se *SqueezeExcitation[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 3 || shape[1] != se.inChannels {
		panic(invalidConfigf("squeeze_excitation", "expected input [N, %d, spatial...], got shape %v", se.inChannels, shape))
	}

	excitation := se.gate.Forward(se.second.Forward(se.activation.Forward(se.first.Forward(globalAvgPool(input)))))

	broadcast := make([]int, len(shape))
	for i := range broadcast {
		broadcast[i] = 1
	}
	broadcast[0], broadcast[1] = shape[0], shape[1]
	return input.Mul(excitation.Reshape(broadcast...))
}

// Parameters returns the parameters of both linear layers followed by
// those of the activation and the gate.
func (se *SqueezeExcitation[B]) Parameters() []*Parameter[B] {
	params := append(se.first.Parameters(), se.second.Parameters()...)
	params = append(params, se.activation.Parameters()...)
	return append(params, se.gate.Parameters()...)
}

// Hidden returns the hidden size.
func (se *SqueezeExcitation[B]) Hidden() int {
	return se.hidden
}

// String returns a string representation of the block.
func (se *SqueezeExcitation[B]) String() string {
	return fmt.Sprintf("SqueezeExcitation(in_channels=%d, hidden=%d)", se.inChannels, se.hidden)
}

// globalAvgPool averages [N, C, spatial...] over the spatial axes into [N, C].
func globalAvgPool[B tensor.Backend](input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	spatial := shape.Spatial()
	pooled := input.Backend().AvgPool(input.Raw(), tensor.PoolParams{
		KernelSize: spatial,
		Stride:     spatial,
		Padding:    make([]int, len(spatial)),
	})
	return tensor.New[float32, B](pooled, input.Backend()).Reshape(shape[0], shape[1])
}
