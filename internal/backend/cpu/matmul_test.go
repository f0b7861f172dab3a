package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/convkit/internal/tensor"
)

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()
	a := rawFrom(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := rawFrom(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	c := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, c.AsFloat32())

	assert.Panics(t, func() { backend.MatMul(a, a) }, "inner dimensions differ")
	assert.Panics(t, func() { backend.MatMul(rawFrom(t, tensor.Shape{1, 2, 3}), b) }, "3D input")
}

func TestCPUBackend_Activations(t *testing.T) {
	backend := newTestBackend()
	x := rawFrom(t, tensor.Shape{4}, -2, -0.5, 0, 3)

	assert.Equal(t, []float32{0, 0, 0, 3}, backend.ReLU(x).AsFloat32())

	sig := backend.Sigmoid(x).AsFloat32()
	for i, v := range x.AsFloat32() {
		assert.InDelta(t, 1/(1+math.Exp(-float64(v))), sig[i], 1e-6)
	}
	assert.Equal(t, float32(0.5), sig[2])
}
