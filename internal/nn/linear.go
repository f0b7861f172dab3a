package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// Linear implements a fully connected layer:
//
//	y = x @ W.T + b
//
// where x is [batch, in_features], W is [out_features, in_features] and
// b is [out_features]. Weights are Xavier-initialized, biases are zeros.
//
// Example:
//
//	layer := nn.NewLinear(64, 4, backend)
//	output := layer.Forward(pooled) // [N, 64] -> [N, 4]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
}

// NewLinear creates a new Linear layer. It panics with
// *InvalidConfigurationError when a feature count is not positive.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(invalidConfigf("linear", "features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}
	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend)
	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("linear.weight", weight),
		bias:        NewParameter("linear.bias", Zeros(tensor.Shape{outFeatures}, backend)),
	}
}

// Forward computes x @ W.T + b for a [batch, in_features] input.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(invalidConfigf("linear", "expected input [batch, %d], got shape %v", l.inFeatures, shape))
	}
	output := input.MatMul(l.weight.Tensor().Transpose())
	return output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// String returns a string representation of the layer.
func (l *Linear[B]) String() string {
	return fmt.Sprintf("Linear(in_features=%d, out_features=%d)", l.inFeatures, l.outFeatures)
}
