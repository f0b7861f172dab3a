package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// Residual adds the input to the output of a module:
//
//	output = module(x) + projection(x)
//
// The projection is the identity when nil; supply one (usually a 1x1
// convolution) when module changes the shape of its input.
type Residual[B tensor.Backend] struct {
	module     Module[B]
	projection Module[B]
}

// NewResidual wraps module with a skip connection. projection may be nil.
func NewResidual[B tensor.Backend](module, projection Module[B]) *Residual[B] {
	return &Residual[B]{module: module, projection: projection}
}

// Forward performs the forward pass.
func (r *Residual[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := r.module.Forward(input)
	skip := input
	if r.projection != nil {
		skip = r.projection.Forward(input)
	}
	return sumSameShape("residual", output, skip)
}

// Parameters returns the parameters of the module and the projection.
func (r *Residual[B]) Parameters() []*Parameter[B] {
	params := r.module.Parameters()
	if r.projection != nil {
		params = append(params, r.projection.Parameters()...)
	}
	return params
}

// String returns a string representation of the block.
func (r *Residual[B]) String() string {
	if r.projection == nil {
		return fmt.Sprintf("Residual(%v)", r.module)
	}
	return fmt.Sprintf("Residual(%v, projection=%v)", r.module, r.projection)
}

// Dense concatenates the output of a module with its input:
//
//	output = cat(module(x), x) along dim
//
// dim is the channel axis (1) in the usual dense-block setting.
type Dense[B tensor.Backend] struct {
	module Module[B]
	dim    int
}

// NewDense wraps module with a dense (concatenating) skip connection.
func NewDense[B tensor.Backend](module Module[B], dim int) *Dense[B] {
	return &Dense[B]{module: module, dim: dim}
}

// Forward performs the forward pass.
func (d *Dense[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := d.module.Forward(input)
	return tensor.Cat([]*tensor.Tensor[float32, B]{output, input}, d.dim)
}

// Parameters returns the wrapped module's parameters.
func (d *Dense[B]) Parameters() []*Parameter[B] {
	return d.module.Parameters()
}

// String returns a string representation of the block.
func (d *Dense[B]) String() string {
	return fmt.Sprintf("Dense(%v, dim=%d)", d.module, d.dim)
}

// Poly applies one module repeatedly and sums the intermediate results:
//
//	output = x + F(x) + F(F(x)) + ... (order terms after the identity)
//
// An order of 1 is a plain residual connection.
type Poly[B tensor.Backend] struct {
	module Module[B]
	order  int
}

// NewPoly creates a Poly block. It panics with *InvalidConfigurationError
// when order < 1.
func NewPoly[B tensor.Backend](module Module[B], order int) *Poly[B] {
	if order < 1 {
		panic(invalidConfigf("poly", "order must be >= 1, got %d", order))
	}
	return &Poly[B]{module: module, order: order}
}

// Forward performs the forward pass.
func (p *Poly[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	sum := input
	term := input
	for i := 0; i < p.order; i++ {
		term = p.module.Forward(term)
		sum = sumSameShape("poly", sum, term)
	}
	return sum
}

// Parameters returns the wrapped module's parameters, shared by every term.
func (p *Poly[B]) Parameters() []*Parameter[B] {
	return p.module.Parameters()
}

// Order returns the number of module applications.
func (p *Poly[B]) Order() int {
	return p.order
}

// String returns a string representation of the block.
func (p *Poly[B]) String() string {
	return fmt.Sprintf("Poly(%v, order=%d)", p.module, p.order)
}

// MPoly chains different modules and sums the intermediate results:
//
//	output = x + F0(x) + F1(F0(x)) + ...
//
// With no modules it is the identity.
type MPoly[B tensor.Backend] struct {
	modules []Module[B]
}

// NewMPoly creates an MPoly block.
func NewMPoly[B tensor.Backend](modules ...Module[B]) *MPoly[B] {
	return &MPoly[B]{modules: modules}
}

// Forward performs the forward pass.
func (p *MPoly[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	sum := input
	term := input
	for _, m := range p.modules {
		term = m.Forward(term)
		sum = sumSameShape("mpoly", sum, term)
	}
	return sum
}

// Parameters returns the parameters of all modules.
func (p *MPoly[B]) Parameters() []*Parameter[B] {
	return collectParameters(p.modules)
}

// WayPoly applies different modules to the same input and sums them:
//
//	output = x + F0(x) + F1(x) + ...
//
// With no modules it is the identity.
type WayPoly[B tensor.Backend] struct {
	modules []Module[B]
}

// NewWayPoly creates a WayPoly block.
func NewWayPoly[B tensor.Backend](modules ...Module[B]) *WayPoly[B] {
	return &WayPoly[B]{modules: modules}
}

// Forward performs the forward pass.
func (p *WayPoly[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	sum := input
	for _, m := range p.modules {
		sum = sumSameShape("waypoly", sum, m.Forward(input))
	}
	return sum
}

// Parameters returns the parameters of all modules.
func (p *WayPoly[B]) Parameters() []*Parameter[B] {
	return collectParameters(p.modules)
}

func collectParameters[B tensor.Backend](modules []Module[B]) []*Parameter[B] {
	var params []*Parameter[B]
	for _, m := range modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// sumSameShape adds two tensors that must have identical shapes. Summing
// blocks never broadcast: a shape change inside the block is a
// configuration error.
func sumSameShape[B tensor.Backend](layer string, a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !a.Shape().Equal(b.Shape()) {
		panic(invalidConfigf(layer, "cannot sum shapes %v and %v, the wrapped module must preserve its input shape", a.Shape(), b.Shape()))
	}
	return a.Add(b)
}
