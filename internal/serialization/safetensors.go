package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/convkit/internal/tensor"
)

// File is the decoded content of a SafeTensors file.
type File struct {
	Tensors  map[string]*tensor.RawTensor
	Metadata map[string]string
}

// Names returns the tensor names in alphabetical order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write encodes tensors and metadata to w. A checksum of the data section
// is added to the metadata.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return errors.WithStack(err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	for _, name := range names {
		raw := tensors[name]
		dtype, ok := dtypeToString(raw.DType())
		if !ok {
			return errors.Wrapf(ErrUnsupportedDType, "tensor %q has dtype %s", name, raw.DType())
		}
		begin := int64(data.Len())
		if err := encodeData(&data, raw); err != nil {
			return errors.Wrapf(err, "failed to encode tensor %q", name)
		}

		shape := make([]int64, len(raw.Shape()))
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}
		header[name] = tensorHeader{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{begin, int64(data.Len())},
		}
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[MetadataChecksum] = ComputeChecksum(data.Bytes())
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if _, err := data.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}

// Read decodes a SafeTensors stream. Offsets and names are validated, and
// the checksum is verified when the metadata carries one.
func Read(r io.Reader) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to parse header")
	}

	f := &File{
		Tensors:  make(map[string]*tensor.RawTensor, len(entries)),
		Metadata: map[string]string{},
	}
	metas := make([]TensorMeta, 0, len(entries))
	for name, entry := range entries {
		if name == metadataKey {
			if err := json.Unmarshal(entry, &f.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to parse metadata")
			}
			continue
		}
		if err := ValidateTensorName(name); err != nil {
			return nil, errors.WithStack(err)
		}
		meta, err := parseTensorHeader(name, entry)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}
	if err := ValidateTensorOffsets(metas, int64(len(data))); err != nil {
		return nil, errors.WithStack(err)
	}
	if stored, ok := f.Metadata[MetadataChecksum]; ok {
		if err := ValidateChecksum(data, stored); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	for _, meta := range metas {
		raw, err := tensor.NewRaw(meta.Shape, meta.DType, tensor.CPU)
		if err != nil {
			return nil, errors.Wrapf(err, "tensor %q", meta.Name)
		}
		decodeData(raw, data[meta.Offset:meta.Offset+meta.Size])
		f.Tensors[meta.Name] = raw
	}
	return f, nil
}

// WriteFile writes tensors and metadata to a file at path.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Write(file, tensors, metadata); err != nil {
		_ = file.Close() // Best effort close on error
		return err
	}
	return errors.WithStack(file.Close())
}

// ReadFile reads a SafeTensors file.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer func() {
		_ = file.Close()
	}()
	return Read(file)
}

func parseTensorHeader(name string, entry json.RawMessage) (TensorMeta, error) {
	var h tensorHeader
	if err := json.Unmarshal(entry, &h); err != nil {
		return TensorMeta{}, errors.Wrapf(err, "failed to parse header of tensor %q", name)
	}
	dtype, ok := stringToDtype(h.DType)
	if !ok {
		return TensorMeta{}, errors.Wrapf(ErrUnsupportedDType, "tensor %q has dtype %q", name, h.DType)
	}
	shape := make(tensor.Shape, len(h.Shape))
	for i, dim := range h.Shape {
		if dim <= 0 || dim > math.MaxInt32 {
			return TensorMeta{}, errors.WithStack(&ValidationError{
				Type:    "invalid_shape",
				Tensor:  name,
				Details: "dimension out of range",
			})
		}
		shape[i] = int(dim)
	}
	return TensorMeta{
		Name:   name,
		DType:  dtype,
		Shape:  shape,
		Offset: h.DataOffsets[0],
		Size:   h.DataOffsets[1] - h.DataOffsets[0],
	}, nil
}

func encodeData(w io.Writer, raw *tensor.RawTensor) error {
	switch raw.DType() {
	case tensor.Float32:
		return binary.Write(w, binary.LittleEndian, raw.AsFloat32())
	case tensor.Float64:
		return binary.Write(w, binary.LittleEndian, raw.AsFloat64())
	default:
		return ErrUnsupportedDType
	}
}

func decodeData(raw *tensor.RawTensor, data []byte) {
	switch raw.DType() {
	case tensor.Float32:
		dst := raw.AsFloat32()
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
	case tensor.Float64:
		dst := raw.AsFloat64()
		for i := range dst {
			dst[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		}
	}
}
