package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/convkit/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input, creating a
// sequential pipeline of transformations. Deferred layers in the chain
// specialize one after another on the first Forward, each on the shape
// produced by its predecessor.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewConv(nn.DefaultConvConfig(3, 16), backend),
//	    nn.NewMaxPool(nn.DefaultPoolConfig(2), backend),
//	)
//
//	output := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input

	for _, module := range s.modules {
		output = module.Forward(output)
	}

	return output
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]

	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}

	return params
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// String lists the modules, one per line.
func (s *Sequential[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, m := range s.modules {
		fmt.Fprintf(&sb, "  (%d): %v\n", i, m)
	}
	sb.WriteString(")")
	return sb.String()
}
