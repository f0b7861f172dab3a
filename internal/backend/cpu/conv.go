package cpu

import (
	"fmt"

	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/internal/tensor"
)

// Conv performs an N-D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, D_1, ..., D_s]
// Kernel shape: [C_out, C_in/groups, K_1, ..., K_s]
// Output shape: [N, C_out, O_1, ..., O_s]
//
// Where, per spatial axis:
//
//	O_i = floor((D_i + 2*padding_i - dilation_i*(K_i-1) - 1) / stride_i) + 1
//
// Algorithm: Im2col, one GEMM per (batch, group) pair
//  1. Gather the input patches of the group into a [C_g*K, O] column matrix
//  2. Multiply the group's kernel rows [C_out/g, C_g*K] with the columns
//  3. The [C_out/g, O] result is already in the output layout
//
// Positions outside the input are filled according to params.PaddingMode.
func (cpu *CPUBackend) Conv(input, kernel *tensor.RawTensor, params tensor.ConvParams) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	nsp := len(inputShape) - 2

	if nsp < 1 {
		panic(fmt.Sprintf("conv: input must be [N,C,spatial...] with at least one spatial axis, got %dD", len(inputShape)))
	}
	if len(kernelShape) != len(inputShape) {
		panic(fmt.Sprintf("conv: kernel must be %dD [C_out,C_in/groups,K...], got %dD", len(inputShape), len(kernelShape)))
	}
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("conv: dtype mismatch input %s vs kernel %s", input.DType(), kernel.DType()))
	}
	checkAxes("conv", nsp, params.Stride, params.Padding, params.Dilation)

	groups := params.Groups
	if groups <= 0 {
		panic(fmt.Sprintf("conv: invalid groups %d", groups))
	}
	batch, cIn := inputShape[0], inputShape[1]
	cOut := kernelShape[0]
	if cIn%groups != 0 || cOut%groups != 0 {
		panic(fmt.Sprintf("conv: channels in=%d out=%d not divisible by groups %d", cIn, cOut, groups))
	}
	if kernelShape[1]*groups != cIn {
		panic(fmt.Sprintf("conv: input channels %d != kernel channels %d * groups %d", cIn, kernelShape[1], groups))
	}

	geo := newGeometry(inputShape.Spatial(), kernelShape.Spatial(), params.Stride, params.Padding, params.Dilation)
	for i, o := range geo.outSpatial {
		if o <= 0 {
			panic(fmt.Sprintf("conv: invalid output extent %d on spatial axis %d (input %d, kernel %d, padding %d, dilation %d, stride %d)",
				o, i, geo.inSpatial[i], geo.kernel[i], geo.padding[i], geo.dilation[i], geo.stride[i]))
		}
	}
	geo.buildLookup("conv", params.PaddingMode)

	outShape := append(tensor.Shape{batch, cOut}, geo.outSpatial...)
	output, err := tensor.NewRaw(outShape, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv: failed to create output tensor: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		convForward(output.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(), batch, cIn, cOut, groups, geo, cpu.parallel)
	case tensor.Float64:
		convForward(output.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(), batch, cIn, cOut, groups, geo, cpu.parallel)
	default:
		panic(fmt.Sprintf("conv: unsupported dtype %s", input.DType()))
	}

	return output
}

func convForward[T float32 | float64](out, in, kernel []T, batch, cIn, cOut, groups int,
	geo *geometry, cfg parallel.Config) {
	cg := cIn / groups
	og := cOut / groups
	inSize := geo.inSize()
	outSize := geo.outSize()
	kSize := geo.kernelSize()
	colRows := cg * kSize

	parallel.For(batch*groups, func(item int) {
		n, g := item/groups, item%groups
		cols := make([]T, colRows*outSize)

		src := in[(n*cIn+g*cg)*inSize : (n*cIn+(g+1)*cg)*inSize]
		im2col(cols, src, cg, geo)

		w := kernel[g*og*colRows : (g+1)*og*colRows]
		dst := out[(n*cOut+g*og)*outSize : (n*cOut+(g+1)*og)*outSize]
		gemm(false, og, outSize, colRows, w, colRows, cols, outSize, dst, outSize)
	}, cfg.WithMinChunkSize(1))
}

// im2col fills cols, a [channels*K, O] row-major matrix, from the
// channels-first block src of shape [channels, D_1, ..., D_s].
func im2col[T float32 | float64](cols, src []T, channels int, geo *geometry) {
	nsp := len(geo.kernel)
	inStrides := tensor.Shape(geo.inSpatial).ComputeStrides()
	inSize := geo.inSize()
	outSize := geo.outSize()
	kSize := geo.kernelSize()

	kc := make([]int, nsp)
	oc := make([]int, nsp)
	row := 0
	for c := 0; c < channels; c++ {
		base := c * inSize
		for k := 0; k < kSize; k++ {
			rowData := cols[row*outSize : (row+1)*outSize]
			for p := range rowData {
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
					rowData[p] = src[base+off]
				} else {
					rowData[p] = 0
				}
				nextCoord(oc, geo.outSpatial)
			}
			nextCoord(kc, geo.kernel)
			row++
		}
	}
}

// geometry holds the per-axis parameters of a sliding-window operation.
type geometry struct {
	inSpatial  []int
	outSpatial []int
	kernel     []int
	stride     []int
	padding    []int
	dilation   []int

	// lookup[d][k*out+o] is the input index read by kernel offset k at
	// output position o along axis d, or -1 for a zero-padded position.
	lookup [][]int
}

func newGeometry(inSpatial, kernel, stride, padding, dilation []int) *geometry {
	geo := &geometry{
		inSpatial:  inSpatial,
		outSpatial: make([]int, len(inSpatial)),
		kernel:     kernel,
		stride:     stride,
		padding:    padding,
		dilation:   dilation,
	}
	for i := range inSpatial {
		geo.outSpatial[i] = tensor.ConvOutputSize(inSpatial[i], kernel[i], stride[i], padding[i], dilation[i])
	}
	return geo
}

func (geo *geometry) buildLookup(op string, mode tensor.PaddingMode) {
	geo.lookup = make([][]int, len(geo.kernel))
	for d := range geo.kernel {
		n, out := geo.inSpatial[d], geo.outSpatial[d]
		if !mode.AllowsPadding(geo.padding[d], n) {
			panic(fmt.Sprintf("%s: %s padding %d does not fit input extent %d on spatial axis %d", op, mode, geo.padding[d], n, d))
		}

		table := make([]int, geo.kernel[d]*out)
		for k := 0; k < geo.kernel[d]; k++ {
			for o := 0; o < out; o++ {
				i := o*geo.stride[d] - geo.padding[d] + k*geo.dilation[d]
				table[k*out+o] = mapIndex(i, n, mode)
			}
		}
		geo.lookup[d] = table
	}
}

func (geo *geometry) inSize() int     { return tensor.Shape(geo.inSpatial).NumElements() }
func (geo *geometry) outSize() int    { return tensor.Shape(geo.outSpatial).NumElements() }
func (geo *geometry) kernelSize() int { return tensor.Shape(geo.kernel).NumElements() }

// mapIndex maps a possibly out-of-range index i on an axis of extent n to
// the input index that supplies its value, or -1 for zeros.
func mapIndex(i, n int, mode tensor.PaddingMode) int {
	if i >= 0 && i < n {
		return i
	}
	switch mode {
	case tensor.PadCircular:
		return ((i % n) + n) % n
	case tensor.PadReflect:
		if n == 1 {
			return 0
		}
		period := 2 * (n - 1)
		i = ((i % period) + period) % period
		if i >= n {
			i = period - i
		}
		return i
	case tensor.PadReplicate:
		return min(max(i, 0), n-1)
	default:
		return -1
	}
}

func checkAxes(op string, nsp int, perAxis ...[]int) {
	for _, values := range perAxis {
		if len(values) != nsp {
			panic(fmt.Sprintf("%s: got %d per-axis values %v for %d spatial axes", op, len(values), values, nsp))
		}
	}
}
