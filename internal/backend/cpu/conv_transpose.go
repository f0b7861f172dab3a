package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/internal/tensor"
)

// ConvTranspose performs an N-D transposed convolution (the adjoint of Conv).
//
// Input shape:  [N, C_in, D_1, ..., D_s]
// Kernel shape: [C_in, C_out/groups, K_1, ..., K_s]
// Output shape: [N, C_out, O_1, ..., O_s]
//
// Where, per spatial axis:
//
//	O_i = (D_i-1)*stride_i - 2*padding_i + dilation_i*(K_i-1) + output_padding_i + 1
//
// Each (batch, group) pair runs one GEMM with the transposed group kernel,
// producing a [C_out/g*K, D] column matrix that col2im scatters into the
// output.
func (cpu *CPUBackend) ConvTranspose(input, kernel *tensor.RawTensor, params tensor.ConvTransposeParams) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	nsp := len(inputShape) - 2

	if nsp < 1 {
		panic(fmt.Sprintf("conv_transpose: input must be [N,C,spatial...] with at least one spatial axis, got %dD", len(inputShape)))
	}
	if len(kernelShape) != len(inputShape) {
		panic(fmt.Sprintf("conv_transpose: kernel must be %dD [C_in,C_out/groups,K...], got %dD", len(inputShape), len(kernelShape)))
	}
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("conv_transpose: dtype mismatch input %s vs kernel %s", input.DType(), kernel.DType()))
	}
	checkAxes("conv_transpose", nsp, params.Stride, params.Padding, params.OutputPadding, params.Dilation)

	groups := params.Groups
	if groups <= 0 {
		panic(fmt.Sprintf("conv_transpose: invalid groups %d", groups))
	}
	batch, cIn := inputShape[0], inputShape[1]
	if kernelShape[0] != cIn {
		panic(fmt.Sprintf("conv_transpose: input channels %d != kernel input channels %d", cIn, kernelShape[0]))
	}
	if cIn%groups != 0 {
		panic(fmt.Sprintf("conv_transpose: input channels %d not divisible by groups %d", cIn, groups))
	}
	cOut := kernelShape[1] * groups

	geo := &geometry{
		inSpatial:  inputShape.Spatial(),
		outSpatial: make([]int, nsp),
		kernel:     kernelShape.Spatial(),
		stride:     params.Stride,
		padding:    params.Padding,
		dilation:   params.Dilation,
	}
	for i := range geo.outSpatial {
		if params.OutputPadding[i] >= max(params.Stride[i], params.Dilation[i]) {
			panic(fmt.Sprintf("conv_transpose: output padding %d must be smaller than stride %d or dilation %d on spatial axis %d",
				params.OutputPadding[i], params.Stride[i], params.Dilation[i], i))
		}
		o := tensor.ConvTransposeOutputSize(geo.inSpatial[i], geo.kernel[i], geo.stride[i], geo.padding[i],
			params.OutputPadding[i], geo.dilation[i])
		if o <= 0 {
			panic(fmt.Sprintf("conv_transpose: invalid output extent %d on spatial axis %d", o, i))
		}
		geo.outSpatial[i] = o
	}

	outShape := append(tensor.Shape{batch, cOut}, geo.outSpatial...)
	output, err := tensor.NewRaw(outShape, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv_transpose: failed to create output tensor: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		convTransposeForward(output.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(), batch, cIn, cOut, groups, geo, cpu.parallel)
	case tensor.Float64:
		convTransposeForward(output.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(), batch, cIn, cOut, groups, geo, cpu.parallel)
	default:
		panic(fmt.Sprintf("conv_transpose: unsupported dtype %s", input.DType()))
	}

	return output
}

func convTransposeForward[T float32 | float64](out, in, kernel []T, batch, cIn, cOut, groups int,
	geo *geometry, cfg parallel.Config) {
	cg := cIn / groups
	og := cOut / groups
	inSize := geo.inSize()
	outSize := geo.outSize()
	kSize := geo.kernelSize()
	colRows := og * kSize

	parallel.For(batch*groups, func(item int) {
		n, g := item/groups, item%groups
		cols := make([]T, colRows*inSize)

		// kernel rows of the group: [cg, og*K]
		w := kernel[g*cg*colRows : (g+1)*cg*colRows]
		src := in[(n*cIn+g*cg)*inSize : (n*cIn+(g+1)*cg)*inSize]
		gemm(true, colRows, inSize, cg, w, colRows, src, inSize, cols, inSize)

		dst := out[(n*cOut+g*og)*outSize : (n*cOut+(g+1)*og)*outSize]
		col2im(dst, cols, og, geo)
	}, cfg.WithMinChunkSize(1))
}

// col2im scatter-adds cols, a [channels*K, D] row-major matrix, into the
// channels-first block dst of shape [channels, O_1, ..., O_s].
func col2im[T float32 | float64](dst, cols []T, channels int, geo *geometry) {
	nsp := len(geo.kernel)
	outStrides := tensor.Shape(geo.outSpatial).ComputeStrides()
	inSize := geo.inSize()
	outSize := geo.outSize()
	kSize := geo.kernelSize()

	kc := make([]int, nsp)
	ic := make([]int, nsp)
	row := 0
	for c := 0; c < channels; c++ {
		base := c * outSize
		for k := 0; k < kSize; k++ {
			rowData := cols[row*inSize : (row+1)*inSize]
			for _, v := range rowData {
				off, valid := 0, true
				for d := 0; d < nsp; d++ {
					o := ic[d]*geo.stride[d] - geo.padding[d] + kc[d]*geo.dilation[d]
					if o < 0 || o >= geo.outSpatial[d] {
						valid = false
						break
					}
					off += o * outStrides[d]
				}
				if valid {
					dst[base+off] += v
				}
				nextCoord(ic, geo.inSpatial)
			}
			nextCoord(kc, geo.kernel)
			row++
		}
	}
}
