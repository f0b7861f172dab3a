package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/convkit/internal/tensor"
)

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("relu", x,
		func(v float32) float32 { return max(v, 0) },
		func(v float64) float64 { return max(v, 0) })
}

// Sigmoid computes 1 / (1 + exp(-x)) element-wise.
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sigmoid", x,
		func(v float32) float32 { return float32(1 / (1 + math.Exp(-float64(v)))) },
		func(v float64) float64 { return 1 / (1 + math.Exp(-v)) })
}

func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f32 func(float32) float32, f64 func(float64) float64) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	switch x.DType() {
	case tensor.Float32:
		dst := result.AsFloat32()
		for i, v := range x.AsFloat32() {
			dst[i] = f32(v)
		}
	case tensor.Float64:
		dst := result.AsFloat64()
		for i, v := range x.AsFloat64() {
			dst[i] = f64(v)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32/float64 supported)", op, x.DType()))
	}
	return result
}
