package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{2, 3, 16, 16}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	dtype := inferDataType(dummy)

	raw, err := NewRaw(shape, dtype, b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with random values from a normal distribution (mean=0, std=1).
// Uses Box-Muller transform for generating normal distribution.
// Note: Uses math/rand (not crypto/rand) - appropriate for ML/statistical purposes.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	for i := 0; i < len(data); i += 2 {
		u1 := 1.0 - rand.Float64() //nolint:gosec // G404: ML uses math/rand intentionally
		u2 := rand.Float64()       //nolint:gosec // G404: ML uses math/rand intentionally
		r := math.Sqrt(-2.0 * math.Log(u1))
		data[i] = T(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = T(r * math.Sin(2.0*math.Pi*u2))
		}
	}
	return t
}

// Rand creates a tensor with random values uniformly distributed in [0, 1).
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(rand.Float64()) //nolint:gosec // G404: ML uses math/rand intentionally
	}
	return t
}

// Arange creates a tensor of the given shape holding 0, 1, 2, ... in row-major order.
//
// Example:
//
//	t := tensor.Arange[float32](Shape{1, 1, 3, 3}, backend) // values 0..8
func Arange[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(i)
	}
	return t
}
