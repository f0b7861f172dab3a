package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// MatMul performs matrix multiplication of 2D tensors:
// (M, K) @ (K, N) -> (M, N).
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}
	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s and %s", a.DType(), b.DType()))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		gemm(false, m, n, k, a.AsFloat32(), k, b.AsFloat32(), n, result.AsFloat32(), n)
	case tensor.Float64:
		gemm(false, m, n, k, a.AsFloat64(), k, b.AsFloat64(), n, result.AsFloat64(), n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
	return result
}
