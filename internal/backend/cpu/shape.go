package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// Reshape returns a view of t with a new shape. A single -1 dimension is
// inferred from the remaining ones.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape := newShape.Clone()
	inferred := -1
	known := 1
	for i, dim := range shape {
		switch {
		case dim == -1:
			if inferred >= 0 {
				panic(fmt.Sprintf("reshape: more than one inferred dimension in %v", newShape))
			}
			inferred = i
		case dim <= 0:
			panic(fmt.Sprintf("reshape: invalid dimension %d in %v", dim, newShape))
		default:
			known *= dim
		}
	}
	if inferred >= 0 {
		if known == 0 || t.NumElements()%known != 0 {
			panic(fmt.Sprintf("reshape: cannot infer dimension of %v for %d elements", newShape, t.NumElements()))
		}
		shape[inferred] = t.NumElements() / known
	}

	view, err := t.View(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose permutes the axes of t. With no axes it reverses them.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, axis := range axes {
		if axis < 0 {
			axis += ndim
		}
		if axis < 0 || axis >= ndim || seen[axis] {
			panic(fmt.Sprintf("transpose: invalid permutation %v for %dD tensor", axes, ndim))
		}
		seen[axis] = true
		axes[i] = axis
		outShape[i] = shape[axis]
	}

	result, err := tensor.NewRaw(outShape, t.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	// srcStrides[i] is the input stride of output axis i.
	inStrides := t.Strides()
	srcStrides := make([]int, ndim)
	for i, axis := range axes {
		srcStrides[i] = inStrides[axis]
	}

	switch t.DType() {
	case tensor.Float32:
		permute(result.AsFloat32(), t.AsFloat32(), outShape, srcStrides)
	case tensor.Float64:
		permute(result.AsFloat64(), t.AsFloat64(), outShape, srcStrides)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return result
}

func permute[T float32 | float64](dst, src []T, outShape tensor.Shape, srcStrides []int) {
	coords := make([]int, len(outShape))
	for i := range dst {
		srcIdx := 0
		for d, c := range coords {
			srcIdx += c * srcStrides[d]
		}
		dst[i] = src[srcIdx]
		nextCoord(coords, outShape)
	}
}
