package serialization

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convkit/internal/tensor"
)

func newRaw(t *testing.T, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	require.NoError(t, err)
	return raw
}

func testTensors(t *testing.T) map[string]*tensor.RawTensor {
	weight := newRaw(t, tensor.Shape{2, 1, 3}, tensor.Float32)
	for i := range weight.AsFloat32() {
		weight.AsFloat32()[i] = float32(i) - 2.5
	}
	bias := newRaw(t, tensor.Shape{2}, tensor.Float64)
	copy(bias.AsFloat64(), []float64{0.125, -7})
	return map[string]*tensor.RawTensor{
		"0.conv1d.weight": weight,
		"1.conv1d.bias":   bias,
	}
}

func TestWriteRead(t *testing.T) {
	tensors := testTensors(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tensors, map[string]string{"layer": "Conv1D"}))

	f, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.conv1d.weight", "1.conv1d.bias"}, f.Names())
	assert.Equal(t, "Conv1D", f.Metadata["layer"])
	assert.Len(t, f.Metadata[MetadataChecksum], 64)

	for name, want := range tensors {
		got := f.Tensors[name]
		require.NotNil(t, got, name)
		assert.Equal(t, want.Shape(), got.Shape(), name)
		assert.Equal(t, want.DType(), got.DType(), name)
		if want.DType() == tensor.Float32 {
			assert.Equal(t, want.AsFloat32(), got.AsFloat32(), name)
		} else {
			assert.Equal(t, want.AsFloat64(), got.AsFloat64(), name)
		}
	}
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.safetensors")
	require.NoError(t, WriteFile(path, testTensors(t), nil))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Tensors, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.safetensors"))
	assert.Error(t, err)
}

func TestRead_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testTensors(t), nil))

	data := buf.Bytes()
	data[len(data)-1] ^= 0xff
	_, err := Read(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrChecksumMismatch), "got %v", err)
}

func TestRead_WithoutChecksum(t *testing.T) {
	header := `{"w":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`
	data := encodeFile(header, []byte{0, 0, 128, 63, 0, 0, 0, 64})

	f, err := Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, f.Tensors["w"].AsFloat32())
}

func TestRead_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
		data   []byte
		kind   string
	}{
		{"out of bounds", `{"w":{"dtype":"F32","shape":[2],"data_offsets":[0,8]}}`, make([]byte, 4), "out_of_bounds"},
		{"size mismatch", `{"w":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`, make([]byte, 8), "size_mismatch"},
		{"overlap", `{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]},"b":{"dtype":"F32","shape":[2],"data_offsets":[4,12]}}`, make([]byte, 12), "offset_overlap"},
		{"bad name", `{"../w":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, make([]byte, 4), "invalid_name"},
		{"bad shape", `{"w":{"dtype":"F32","shape":[0],"data_offsets":[0,0]}}`, nil, "invalid_shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(encodeFile(tt.header, tt.data)))
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.kind, vErr.Type)
		})
	}
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{1, 2}))
	assert.Error(t, err, "truncated header size")

	var huge bytes.Buffer
	require.NoError(t, binary.Write(&huge, binary.LittleEndian, uint64(MaxHeaderSize+1)))
	_, err = Read(&huge)
	assert.True(t, errors.Is(err, ErrHeaderTooLarge), "got %v", err)

	_, err = Read(bytes.NewReader(encodeFile(`{"w":{"dtype":"I8","shape":[1],"data_offsets":[0,1]}}`, []byte{1})))
	assert.True(t, errors.Is(err, ErrUnsupportedDType), "got %v", err)

	_, err = Read(bytes.NewReader(encodeFile(`{not json`, nil)))
	assert.Error(t, err)
}

func TestWrite_InvalidName(t *testing.T) {
	tensors := map[string]*tensor.RawTensor{"a/b": newRaw(t, tensor.Shape{1}, tensor.Float32)}
	var vErr *ValidationError
	assert.True(t, errors.As(Write(&bytes.Buffer{}, tensors, nil), &vErr))
}

func encodeFile(header string, data []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}
