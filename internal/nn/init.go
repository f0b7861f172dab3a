package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/convkit/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// For convolution kernels the fans include the receptive field:
//
//	fan_in  = in_channels/groups * prod(kernel)
//	fan_out = out_channels * prod(kernel)
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}

	data := t.AsFloat32()
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}

	return tensor.New[float32, B](t, backend)
}

// Zeros creates a tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}
