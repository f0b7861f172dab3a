package nn

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/convkit/internal/serialization"
	"github.com/born-ml/convkit/internal/tensor"
)

// StateDict returns a copy of the module's parameters keyed by
// "<index>.<parameter name>", e.g. "0.conv2d.weight". The index is the
// position in Parameters(), which keeps repeated names apart.
//
// A deferred layer that has not specialized yet has an empty state.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	params := m.Parameters()
	dict := make(map[string]*tensor.RawTensor, len(params))
	for i, p := range params {
		dict[stateKey(i, p)] = p.Tensor().Raw().Clone()
	}
	return dict
}

// LoadStateDict copies dict into the module's parameters. Keys and shapes
// must match StateDict of the module exactly. Nothing is copied unless the
// whole dict matches.
func LoadStateDict[B tensor.Backend](m Module[B], dict map[string]*tensor.RawTensor) error {
	params := m.Parameters()
	sources := make([]*tensor.RawTensor, len(params))
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		key := stateKey(i, p)
		seen[key] = true
		raw, ok := dict[key]
		if !ok {
			return errors.Errorf("missing parameter %q", key)
		}
		if !raw.Shape().Equal(p.Tensor().Shape()) {
			return errors.Errorf("parameter %q: shape %v does not match %v", key, raw.Shape(), p.Tensor().Shape())
		}
		if raw.DType() != tensor.Float32 && raw.DType() != tensor.Float64 {
			return errors.Errorf("parameter %q: unsupported dtype %s", key, raw.DType())
		}
		sources[i] = raw
	}

	var unexpected []string
	for key := range dict {
		if !seen[key] {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return errors.Errorf("unexpected parameters %q", unexpected)
	}

	for i, p := range params {
		raw := sources[i]
		if raw.DType() == tensor.Float32 {
			copy(p.Tensor().Data(), raw.AsFloat32())
			continue
		}
		dst := p.Tensor().Data()
		for j, v := range raw.AsFloat64() {
			dst[j] = float32(v)
		}
	}
	return nil
}

// SaveParameters writes the module's parameters to a SafeTensors file.
func SaveParameters[B tensor.Backend](path string, m Module[B], metadata map[string]string) error {
	dict := StateDict(m)
	if err := serialization.WriteFile(path, dict, metadata); err != nil {
		return errors.Wrapf(err, "failed to save parameters to %s", path)
	}
	klog.V(1).Infof("saved %d parameters to %s", len(dict), path)
	return nil
}

// LoadParameters reads a file written by SaveParameters into the module and
// returns the file metadata. A deferred layer must be specialized first.
func LoadParameters[B tensor.Backend](path string, m Module[B]) (map[string]string, error) {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load parameters from %s", path)
	}
	if err := LoadStateDict(m, f.Tensors); err != nil {
		return nil, errors.Wrapf(err, "failed to load parameters from %s", path)
	}
	klog.V(1).Infof("loaded %d parameters from %s", len(f.Tensors), path)
	return f.Metadata, nil
}

func stateKey[B tensor.Backend](i int, p *Parameter[B]) string {
	return fmt.Sprintf("%d.%s", i, p.Name())
}
