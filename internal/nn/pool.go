package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/convkit/internal/tensor"
)

// PoolConfig configures a max or average pooling window of any
// dimensionality. An empty Stride defaults to the kernel size.
type PoolConfig struct {
	KernelSize Spatial
	Stride     Spatial
	Padding    Spatial
}

// DefaultPoolConfig returns a non-overlapping, unpadded window of size k.
func DefaultPoolConfig(k int) PoolConfig {
	return PoolConfig{
		KernelSize: Spatial{k},
		Padding:    Spatial{0},
	}
}

// Validate checks the per-axis fields without reference to any input.
func (cfg PoolConfig) Validate() error {
	const layer = "pool"
	if err := checkSpatial(layer, "kernel size", cfg.KernelSize, 1); err != nil {
		return err
	}
	if len(cfg.Stride) > 0 {
		if err := checkSpatial(layer, "stride", cfg.Stride, 1); err != nil {
			return err
		}
	}
	if len(cfg.Padding) > 0 {
		if err := checkSpatial(layer, "padding", cfg.Padding, 0); err != nil {
			return err
		}
	}
	return nil
}

type poolKind int

const (
	maxPool poolKind = iota
	avgPool
)

func (k poolKind) String() string {
	if k == maxPool {
		return "MaxPool"
	}
	return "AvgPool"
}

// layerName returns the name used in errors and logs, e.g. "maxpool2d".
func (k poolKind) layerName(nsp int) string {
	return fmt.Sprintf("%s%dd", strings.ToLower(k.String()), nsp)
}

// Pool is an N-D max or average pooling layer for a fixed input rank.
//
// Pooling has no learnable parameters.
//
// Input shape:  [batch, channels, D_1, ..., D_s]
// Output shape: [batch, channels, O_1, ..., O_s]
//
// Where:
//
//	O_i = (D_i + 2*padding_i - K_i) / stride_i + 1
//
// Max pooling ignores padded positions; average pooling counts them as zeros.
type Pool[B tensor.Backend] struct {
	kind       poolKind
	rank       Rank
	kernelSize []int
	stride     []int
	padding    []int
	backend    B
}

// NewMaxPool1D creates max pooling over [N, C, L] inputs.
func NewMaxPool1D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return newPool(maxPool, Rank3, cfg, backend)
}

// NewMaxPool2D creates max pooling over [N, C, H, W] inputs.
func NewMaxPool2D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return newPool(maxPool, Rank4, cfg, backend)
}

// NewMaxPool3D creates max pooling over [N, C, D, H, W] inputs.
func NewMaxPool3D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return newPool(maxPool, Rank5, cfg, backend)
}

// NewAvgPool1D creates average pooling over [N, C, L] inputs.
func NewAvgPool1D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return newPool(avgPool, Rank3, cfg, backend)
}

// NewAvgPool2D creates average pooling over [N, C, H, W] inputs.
func NewAvgPool2D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return newPool(avgPool, Rank4, cfg, backend)
}

// NewAvgPool3D creates average pooling over [N, C, D, H, W] inputs.
func NewAvgPool3D[B tensor.Backend](cfg PoolConfig, backend B) (*Pool[B], error) {
	return newPool(avgPool, Rank5, cfg, backend)
}

// NewMaxPool declares max pooling whose dimensionality follows its first input.
//
// It panics with *InvalidConfigurationError if cfg fails Validate.
func NewMaxPool[B tensor.Backend](cfg PoolConfig, backend B) *Deferred[B, PoolConfig] {
	return newDeferredPool(maxPool, cfg, backend)
}

// NewAvgPool declares average pooling whose dimensionality follows its
// first input.
//
// It panics with *InvalidConfigurationError if cfg fails Validate.
func NewAvgPool[B tensor.Backend](cfg PoolConfig, backend B) *Deferred[B, PoolConfig] {
	return newDeferredPool(avgPool, cfg, backend)
}

func newDeferredPool[B tensor.Backend](kind poolKind, cfg PoolConfig, backend B) *Deferred[B, PoolConfig] {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	factories := make(map[Rank]Factory[B, PoolConfig], 3)
	for _, rank := range []Rank{Rank3, Rank4, Rank5} {
		factories[rank] = func(cfg PoolConfig, backend B) (Module[B], error) {
			pool, err := newPool(kind, rank, cfg, backend)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	return NewDeferred[B, PoolConfig](strings.ToLower(kind.String()), factories, nil, cfg, backend)
}

func newPool[B tensor.Backend](kind poolKind, rank Rank, cfg PoolConfig, backend B) (*Pool[B], error) {
	nsp := rank.SpatialDims()
	name := kind.layerName(nsp)

	kernel, err := expandField(name, "kernel size", cfg.KernelSize, nsp)
	if err != nil {
		return nil, err
	}
	strideField := cfg.Stride
	if len(strideField) == 0 {
		strideField = cfg.KernelSize
	}
	stride, err := expandField(name, "stride", strideField, nsp)
	if err != nil {
		return nil, err
	}
	paddingField := cfg.Padding
	if len(paddingField) == 0 {
		paddingField = Spatial{0}
	}
	padding, err := expandField(name, "padding", paddingField, nsp)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nsp; i++ {
		if kernel[i] <= 0 || stride[i] <= 0 || padding[i] < 0 {
			return nil, invalidConfigf(name, "invalid window on axis %d: kernel=%d stride=%d padding=%d",
				i, kernel[i], stride[i], padding[i])
		}
		if 2*padding[i] > kernel[i] {
			return nil, invalidConfigf(name, "padding %d on axis %d must be at most half of kernel size %d",
				padding[i], i, kernel[i])
		}
	}

	return &Pool[B]{
		kind:       kind,
		rank:       rank,
		kernelSize: kernel,
		stride:     stride,
		padding:    padding,
		backend:    backend,
	}, nil
}

// OutputShape returns the output shape for an input shape, or an
// *InvalidConfigurationError when the window does not fit.
func (p *Pool[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	name := p.kind.layerName(p.rank.SpatialDims())
	if len(input) != int(p.rank) {
		return nil, invalidConfigf(name, "expected %dD input [N,C,spatial...], got shape %v", int(p.rank), input)
	}
	out := tensor.Shape{input[0], input[1]}
	for i, n := range input[2:] {
		o := tensor.PoolOutputSize(n, p.kernelSize[i], p.stride[i], p.padding[i])
		if o <= 0 {
			return nil, invalidConfigf(name, "kernel size %d too large for input extent %d on spatial axis %d", p.kernelSize[i], n, i)
		}
		out = append(out, o)
	}
	return out, nil
}

// Forward performs the forward pass.
func (p *Pool[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if _, err := p.OutputShape(input.Shape()); err != nil {
		panic(err)
	}
	params := tensor.PoolParams{KernelSize: p.kernelSize, Stride: p.stride, Padding: p.padding}
	var outputRaw *tensor.RawTensor
	if p.kind == maxPool {
		outputRaw = p.backend.MaxPool(input.Raw(), params)
	} else {
		outputRaw = p.backend.AvgPool(input.Raw(), params)
	}
	return tensor.New[float32, B](outputRaw, p.backend)
}

// Parameters returns an empty slice (pooling has no trainable parameters).
func (p *Pool[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// Rank returns the input rank this layer accepts.
func (p *Pool[B]) Rank() Rank { return p.rank }

// KernelSize returns the per-axis window size.
func (p *Pool[B]) KernelSize() []int { return append([]int(nil), p.kernelSize...) }

// Stride returns the per-axis stride.
func (p *Pool[B]) Stride() []int { return append([]int(nil), p.stride...) }

// Padding returns the per-axis padding.
func (p *Pool[B]) Padding() []int { return append([]int(nil), p.padding...) }

// String returns a string representation of the layer.
func (p *Pool[B]) String() string {
	return fmt.Sprintf("%s%dD(kernel_size=%v, stride=%v, padding=%v)",
		p.kind, p.rank.SpatialDims(), p.kernelSize, p.stride, p.padding)
}
