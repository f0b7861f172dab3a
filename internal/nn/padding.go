package nn

import (
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/convkit/internal/tensor"
)

// Padding is either same padding, resolved from the input extents when a
// deferred layer specializes, or an explicit per-axis amount.
//
// The zero value is explicit zero padding.
type Padding struct {
	same   bool
	values Spatial
}

// Same requests padding that keeps every spatial extent unchanged at
// stride 1. It requires odd kernel sizes.
func Same() Padding {
	return Padding{same: true}
}

// Explicit pads every spatial axis by the given amounts, on both sides.
// A single value applies to every axis.
func Explicit(p ...int) Padding {
	return Padding{values: append(Spatial(nil), p...)}
}

// ParsePadding parses "same" (case-insensitive) or a comma-separated list
// of explicit amounts such as "1" or "1,2".
func ParsePadding(s string) (Padding, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "same") {
		return Same(), nil
	}
	values, err := parseInts(s)
	if err != nil {
		return Padding{}, errors.WithMessage(err, "padding must be \"same\" or a list of integers")
	}
	return Explicit(values...), nil
}

// IsSame reports whether p requests same padding.
func (p Padding) IsSame() bool {
	return p.same
}

// Values returns the explicit amounts; zero padding when none were given.
// It returns nil for same padding.
func (p Padding) Values() Spatial {
	if p.same {
		return nil
	}
	if len(p.values) == 0 {
		return Spatial{0}
	}
	return append(Spatial(nil), p.values...)
}

// String returns "same" or the explicit amounts.
func (p Padding) String() string {
	if p.same {
		return "same"
	}
	return p.Values().String()
}

// ResolveSamePadding computes, for every spatial axis i of an input with
// the given spatial extents, the symmetric padding
//
//	padding_i = ceil((n_i*s_i - n_i + d_i*(k_i-1)) / 2)
//
// which keeps the output extent equal to n_i at stride 1. Kernel sizes
// must be odd, otherwise a *PaddingError names the first offending axis.
func ResolveSamePadding(spatial []int, kernelSize, stride, dilation Spatial) ([]int, error) {
	const layer = "same padding"
	n := len(spatial)
	kernel, err := expandField(layer, "kernel size", kernelSize, n)
	if err != nil {
		return nil, err
	}
	strides, err := expandField(layer, "stride", stride, n)
	if err != nil {
		return nil, err
	}
	dilations, err := expandField(layer, "dilation", dilation, n)
	if err != nil {
		return nil, err
	}

	padding := make([]int, n)
	for i, extent := range spatial {
		k, s, d := kernel[i], strides[i], dilations[i]
		if k <= 0 || s <= 0 || d <= 0 {
			return nil, invalidConfigf(layer, "kernel size, stride and dilation must be positive, got %d, %d and %d on axis %d", k, s, d, i)
		}
		if k%2 == 0 {
			return nil, errors.WithStack(&PaddingError{Axis: i, KernelSize: k})
		}
		total := extent*s - extent + d*(k-1)
		padding[i] = (total + 1) / 2
	}
	return padding, nil
}

// SamePaddingHook is the construction hook of padding-aware convolutions.
// When the configuration requests same padding, it resolves explicit
// padding from the input's spatial extents and builds the delegate from
// a copy of the configuration carrying it. Kernel size, stride and
// dilation are passed through untouched.
func SamePaddingHook[B tensor.Backend](input tensor.Shape, factory Factory[B, ConvConfig], cfg ConvConfig, backend B) (Module[B], error) {
	if !cfg.Padding.IsSame() {
		return factory(cfg, backend)
	}
	padding, err := ResolveSamePadding(input[2:], cfg.KernelSize, cfg.Stride, cfg.Dilation)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("same padding for input %v: kernel=%s stride=%s dilation=%s -> %v",
		input, cfg.KernelSize, cfg.Stride, cfg.Dilation, padding)
	cfg.Padding = Explicit(padding...)
	return factory(cfg, backend)
}
