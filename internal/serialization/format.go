package serialization

import (
	"github.com/born-ml/convkit/internal/tensor"
)

// SafeTensors dtype strings.
const (
	DTypeFloat32 = "F32"
	DTypeFloat64 = "F64"
)

// metadataKey is the reserved header entry for string metadata.
const metadataKey = "__metadata__"

// tensorHeader is one tensor entry of the JSON header.
type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// TensorMeta describes a tensor stored in a file.
type TensorMeta struct {
	Name   string // Tensor name (e.g., "0.conv2d.weight")
	DType  tensor.DataType
	Shape  tensor.Shape
	Offset int64 // Offset in the data section
	Size   int64 // Size in bytes
}

// dtypeToString converts tensor.DataType to its SafeTensors name.
func dtypeToString(dt tensor.DataType) (string, bool) {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32, true
	case tensor.Float64:
		return DTypeFloat64, true
	default:
		return "", false
	}
}

// stringToDtype converts a SafeTensors dtype name to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	default:
		return 0, false
	}
}
