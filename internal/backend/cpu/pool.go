package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/internal/tensor"
)

// MaxPool performs N-D max pooling.
//
// Input shape:  [N, C, D_1, ..., D_s]
// Output shape: [N, C, O_1, ..., O_s]
//
// Where O_i = floor((D_i + 2*padding_i - K_i) / stride_i) + 1.
// Padded positions never win the maximum.
//
// Example (2x2 pool, stride=2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool(input *tensor.RawTensor, params tensor.PoolParams) *tensor.RawTensor {
	return cpu.pool("maxpool", input, params, true)
}

// AvgPool performs N-D average pooling. Padded positions count as zeros,
// so every window is divided by the full kernel volume.
func (cpu *CPUBackend) AvgPool(input *tensor.RawTensor, params tensor.PoolParams) *tensor.RawTensor {
	return cpu.pool("avgpool", input, params, false)
}

func (cpu *CPUBackend) pool(op string, input *tensor.RawTensor, params tensor.PoolParams, isMax bool) *tensor.RawTensor {
	inputShape := input.Shape()
	nsp := len(inputShape) - 2
	if nsp < 1 {
		panic(fmt.Sprintf("%s: input must be [N,C,spatial...] with at least one spatial axis, got %dD", op, len(inputShape)))
	}
	checkAxes(op, nsp, params.KernelSize, params.Stride, params.Padding)

	geo := &geometry{
		inSpatial:  inputShape.Spatial(),
		outSpatial: make([]int, nsp),
		kernel:     params.KernelSize,
		stride:     params.Stride,
		padding:    params.Padding,
		dilation:   make([]int, nsp),
	}
	for i := range geo.outSpatial {
		k, s, p := geo.kernel[i], geo.stride[i], geo.padding[i]
		if k <= 0 || s <= 0 || p < 0 {
			panic(fmt.Sprintf("%s: invalid window kernel=%d stride=%d padding=%d on spatial axis %d", op, k, s, p, i))
		}
		if 2*p > k {
			panic(fmt.Sprintf("%s: padding %d must be at most half of kernel size %d on spatial axis %d", op, p, k, i))
		}
		o := tensor.PoolOutputSize(geo.inSpatial[i], k, s, p)
		if o <= 0 {
			panic(fmt.Sprintf("%s: kernel size %d too large for input extent %d on spatial axis %d", op, k, geo.inSpatial[i], i))
		}
		geo.outSpatial[i] = o
		geo.dilation[i] = 1
	}
	geo.buildLookup(op, tensor.PadZeros)

	batch, channels := inputShape[0], inputShape[1]
	outShape := append(tensor.Shape{batch, channels}, geo.outSpatial...)
	output, err := tensor.NewRaw(outShape, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create output: %v", op, err))
	}

	switch input.DType() {
	case tensor.Float32:
		poolForward(output.AsFloat32(), input.AsFloat32(), batch, channels, geo, isMax, cpu.parallel)
	case tensor.Float64:
		poolForward(output.AsFloat64(), input.AsFloat64(), batch, channels, geo, isMax, cpu.parallel)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, input.DType()))
	}
	return output
}

func poolForward[T float32 | float64](out, in []T, batch, channels int, geo *geometry, isMax bool, cfg parallel.Config) {
	nsp := len(geo.kernel)
	inStrides := tensor.Shape(geo.inSpatial).ComputeStrides()
	inSize := geo.inSize()
	outSize := geo.outSize()
	kSize := geo.kernelSize()
	volume := T(kSize)

	parallel.ForBatch(batch, channels, func(n, c int) {
		// Pre-slice the channel plane.
		plane := in[(n*channels+c)*inSize : (n*channels+c+1)*inSize]
		dst := out[(n*channels+c)*outSize : (n*channels+c+1)*outSize]

		oc := make([]int, nsp)
		kc := make([]int, nsp)
		for p := range dst {
			acc := T(0)
			if isMax {
				acc = T(math.Inf(-1))
			}
			for k := 0; k < kSize; k++ {
				off, valid := 0, true
				for d := 0; d < nsp; d++ {
					idx := geo.lookup[d][kc[d]*geo.outSpatial[d]+oc[d]]
					if idx < 0 {
						valid = false
						break
					}
					off += idx * inStrides[d]
				}
				if valid {
					v := plane[off]
					if isMax {
						if v > acc {
							acc = v
						}
					} else {
						acc += v
					}
				}
				nextCoord(kc, geo.kernel)
			}
			if !isMax {
				acc /= volume
			}
			dst[p] = acc
			nextCoord(oc, geo.outSpatial)
		}
	}, cfg)
}
