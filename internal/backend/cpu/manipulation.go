package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	shape := tensors[0].Shape()
	ndim := len(shape)
	dtype := tensors[0].DType()

	dim = normalizeDim("cat", dim, ndim)

	// Validate shapes and calculate total size along concat dimension
	totalDim := 0
	for i, t := range tensors {
		tShape := t.Shape()
		if len(tShape) != ndim {
			panic(fmt.Sprintf("cat: tensor %d has %d dimensions, expected %d", i, len(tShape), ndim))
		}
		if t.DType() != dtype {
			panic(fmt.Sprintf("cat: tensor %d has dtype %s, expected %s", i, t.DType(), dtype))
		}
		for d := 0; d < ndim; d++ {
			if d == dim {
				totalDim += tShape[d]
			} else if tShape[d] != shape[d] {
				panic(fmt.Sprintf("cat: tensor %d dimension %d is %d, expected %d", i, d, tShape[d], shape[d]))
			}
		}
	}

	outShape := shape.Clone()
	outShape[dim] = totalDim

	result, err := tensor.NewRaw(outShape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// outer = product of dims before dim, inner = product of dims after dim.
	outer := shape[:dim].NumElements()
	inner := shape[dim+1:].NumElements()

	switch dtype {
	case tensor.Float32:
		parts := make([][]float32, len(tensors))
		for i, t := range tensors {
			parts[i] = t.AsFloat32()
		}
		catInto(result.AsFloat32(), parts, tensors, dim, outer, inner)
	case tensor.Float64:
		parts := make([][]float64, len(tensors))
		for i, t := range tensors {
			parts[i] = t.AsFloat64()
		}
		catInto(result.AsFloat64(), parts, tensors, dim, outer, inner)
	default:
		panic(fmt.Sprintf("cat: unsupported dtype %s", dtype))
	}

	return result
}

func catInto[T float32 | float64](dst []T, parts [][]T, tensors []*tensor.RawTensor, dim, outer, inner int) {
	pos := 0
	for o := 0; o < outer; o++ {
		for i, part := range parts {
			block := tensors[i].Shape()[dim] * inner
			copy(dst[pos:pos+block], part[o*block:(o+1)*block])
			pos += block
		}
	}
}

// Split splits x into consecutive parts along dim. The sizes must be
// positive and sum to the extent of dim.
func (cpu *CPUBackend) Split(x *tensor.RawTensor, sizes []int, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("split", dim, len(shape))

	total := 0
	for _, s := range sizes {
		if s <= 0 {
			panic(fmt.Sprintf("split: invalid part size %d in %v", s, sizes))
		}
		total += s
	}
	if total != shape[dim] {
		panic(fmt.Sprintf("split: sizes %v sum to %d, dimension %d has size %d", sizes, total, dim, shape[dim]))
	}

	outer := shape[:dim].NumElements()
	inner := shape[dim+1:].NumElements()

	results := make([]*tensor.RawTensor, len(sizes))
	offset := 0
	for i, size := range sizes {
		partShape := shape.Clone()
		partShape[dim] = size
		part, err := tensor.NewRaw(partShape, x.DType(), cpu.device)
		if err != nil {
			panic(fmt.Sprintf("split: %v", err))
		}

		switch x.DType() {
		case tensor.Float32:
			splitInto(part.AsFloat32(), x.AsFloat32(), shape[dim], offset, size, outer, inner)
		case tensor.Float64:
			splitInto(part.AsFloat64(), x.AsFloat64(), shape[dim], offset, size, outer, inner)
		default:
			panic(fmt.Sprintf("split: unsupported dtype %s", x.DType()))
		}
		results[i] = part
		offset += size
	}
	return results
}

func splitInto[T float32 | float64](dst, src []T, dimSize, offset, size, outer, inner int) {
	block := size * inner
	for o := 0; o < outer; o++ {
		start := (o*dimSize + offset) * inner
		copy(dst[o*block:(o+1)*block], src[start:start+block])
	}
}

func normalizeDim(op string, dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", op, dim, ndim))
	}
	return dim
}
