package nn

import (
	"github.com/born-ml/convkit/internal/tensor"
)

// ReLUBackend is implemented by backends that support ReLU activation.
type ReLUBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// SigmoidBackend is implemented by backends that support Sigmoid activation.
type SigmoidBackend interface {
	Sigmoid(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU applies f(x) = max(0, x) element-wise.
type ReLU[B tensor.Backend] struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return &ReLU[B]{}
}

// Forward applies ReLU activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if reluBackend, ok := any(backend).(ReLUBackend); ok {
		return tensor.New[float32, B](reluBackend.ReLU(input.Raw()), backend)
	}
	panic(invalidConfigf("relu", "backend %s does not implement ReLU", backend.Name()))
}

// Parameters returns an empty slice.
func (r *ReLU[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns "ReLU()".
func (r *ReLU[B]) String() string {
	return "ReLU()"
}

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)) element-wise.
type Sigmoid[B tensor.Backend] struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return &Sigmoid[B]{}
}

// Forward applies Sigmoid activation.
func (s *Sigmoid[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := input.Backend()
	if sigmoidBackend, ok := any(backend).(SigmoidBackend); ok {
		return tensor.New[float32, B](sigmoidBackend.Sigmoid(input.Raw()), backend)
	}
	panic(invalidConfigf("sigmoid", "backend %s does not implement Sigmoid", backend.Name()))
}

// Parameters returns an empty slice.
func (s *Sigmoid[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns "Sigmoid()".
func (s *Sigmoid[B]) String() string {
	return "Sigmoid()"
}
