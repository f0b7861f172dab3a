package tensor

import (
	"strings"

	"github.com/pkg/errors"
)

// PaddingMode selects the values used for positions outside the input
// when a convolution pads its borders.
type PaddingMode int

// Supported padding modes.
const (
	// PadZeros pads with zeros.
	PadZeros PaddingMode = iota
	// PadCircular wraps around to the opposite edge.
	PadCircular
	// PadReflect mirrors the input without repeating the edge value.
	PadReflect
	// PadReplicate repeats the edge value.
	PadReplicate
)

// String returns the mode name.
func (m PaddingMode) String() string {
	switch m {
	case PadZeros:
		return "zeros"
	case PadCircular:
		return "circular"
	case PadReflect:
		return "reflect"
	case PadReplicate:
		return "replicate"
	default:
		return "unknown"
	}
}

// AllowsPadding reports whether the mode can pad an axis of extent n by
// padding on each side. Reflect needs padding < n; circular and replicate
// need padding <= n; zeros has no limit.
func (m PaddingMode) AllowsPadding(padding, n int) bool {
	switch m {
	case PadCircular, PadReplicate:
		return padding <= n
	case PadReflect:
		return padding < n
	default:
		return true
	}
}

// ParsePaddingMode parses a mode name (case-insensitive).
func ParsePaddingMode(s string) (PaddingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zeros", "":
		return PadZeros, nil
	case "circular":
		return PadCircular, nil
	case "reflect":
		return PadReflect, nil
	case "replicate":
		return PadReplicate, nil
	default:
		return PadZeros, errors.Errorf("unknown padding mode %q (want zeros, circular, reflect or replicate)", s)
	}
}

// ConvParams describes an N-D convolution. Every per-axis slice has one
// entry per spatial axis.
type ConvParams struct {
	Stride      []int
	Padding     []int
	Dilation    []int
	Groups      int
	PaddingMode PaddingMode
}

// ConvTransposeParams describes an N-D transposed convolution.
type ConvTransposeParams struct {
	Stride        []int
	Padding       []int
	OutputPadding []int
	Dilation      []int
	Groups        int
}

// PoolParams describes an N-D pooling window.
type PoolParams struct {
	KernelSize []int
	Stride     []int
	Padding    []int
}

// ConvOutputSize returns the output extent of a convolution along one axis:
//
//	floor((n + 2*padding - dilation*(kernel-1) - 1) / stride) + 1
func ConvOutputSize(n, kernel, stride, padding, dilation int) int {
	return floorDiv(n+2*padding-dilation*(kernel-1)-1, stride) + 1
}

// ConvTransposeOutputSize returns the output extent of a transposed
// convolution along one axis:
//
//	(n-1)*stride - 2*padding + dilation*(kernel-1) + outputPadding + 1
func ConvTransposeOutputSize(n, kernel, stride, padding, outputPadding, dilation int) int {
	return (n-1)*stride - 2*padding + dilation*(kernel-1) + outputPadding + 1
}

// PoolOutputSize returns the output extent of a pooling window along one axis:
//
//	floor((n + 2*padding - kernel) / stride) + 1
func PoolOutputSize(n, kernel, stride, padding int) int {
	return floorDiv(n+2*padding-kernel, stride) + 1
}

// floorDiv divides rounding toward negative infinity, so a window larger
// than the padded input gives a non-positive extent. d must be positive.
func floorDiv(n, d int) int {
	q := n / d
	if n%d != 0 && n < 0 {
		q--
	}
	return q
}
