// Package cpu implements the CPU backend: pure Go kernels with gonum BLAS
// for the convolution GEMMs.
package cpu

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend using parallel.DefaultConfig.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	klog.V(2).Infof("cpu backend: %s", cfg)
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// ParallelConfig returns the parallel configuration used by the kernels.
func (cpu *CPUBackend) ParallelConfig() parallel.Config {
	return cpu.parallel
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b,
		func(x, y float32) float32 { return x + y },
		func(x, y float64) float64 { return x + y })
}

// Mul performs element-wise multiplication with NumPy-style broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b,
		func(x, y float32) float32 { return x * y },
		func(x, y float64) float64 { return x * y })
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor,
	f32 func(x, y float32) float32, f64 func(x, y float64) float64) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", op, a.DType(), b.DType()))
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}

	switch a.DType() {
	case tensor.Float32:
		binaryOp(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, needsBroadcast, f32)
	case tensor.Float64:
		binaryOp(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, needsBroadcast, f64)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, a.DType()))
	}
	return result
}

// binaryOp applies f element-wise. The fast path handles equal shapes; the
// slow path maps every output coordinate back to both inputs.
func binaryOp[T float32 | float64](dst, a, b []T, aShape, bShape, outShape tensor.Shape,
	needsBroadcast bool, f func(x, y T) T) {
	if !needsBroadcast {
		for i := range dst {
			dst[i] = f(a[i], b[i])
		}
		return
	}

	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)
	coords := make([]int, len(outShape))
	for i := range dst {
		aIdx, bIdx := 0, 0
		for d := range coords {
			aIdx += coords[d] * aStrides[d]
			bIdx += coords[d] * bStrides[d]
		}
		dst[i] = f(a[aIdx], b[bIdx])
		nextCoord(coords, outShape)
	}
}

// broadcastStrides returns strides of shape aligned to outShape, with 0 for
// broadcast (size 1 or missing) dimensions.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	own := shape.ComputeStrides()
	offset := len(outShape) - len(shape)
	for i := range shape {
		if shape[i] != 1 {
			strides[offset+i] = own[i]
		}
	}
	return strides
}

// nextCoord advances a row-major coordinate by one position.
func nextCoord(coords []int, shape []int) {
	for d := len(coords) - 1; d >= 0; d-- {
		coords[d]++
		if coords[d] < shape[d] {
			return
		}
		coords[d] = 0
	}
}
