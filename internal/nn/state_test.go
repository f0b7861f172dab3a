package nn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convkit/internal/backend/cpu"
	"github.com/born-ml/convkit/internal/tensor"
)

func TestStateDict(t *testing.T) {
	backend := cpu.New()
	conv := NewConv(DefaultConvConfig(2, 3), backend)
	assert.Empty(t, StateDict[testBackend](conv), "unspecialized layer")

	conv.Forward(tensor.Zeros[float32](tensor.Shape{1, 2, 5}, backend))
	dict := StateDict[testBackend](conv)
	require.Len(t, dict, 2)
	assert.Equal(t, tensor.Shape{3, 2, 3}, dict["0.conv1d.weight"].Shape())
	assert.Equal(t, tensor.Shape{3}, dict["1.conv1d.bias"].Shape())

	// The state is a copy.
	dict["1.conv1d.bias"].AsFloat32()[0] = 42
	assert.Equal(t, float32(0), conv.Parameters()[1].Tensor().At(0))
}

func TestLoadStateDict(t *testing.T) {
	backend := cpu.New()
	x := tensor.Randn[float32](tensor.Shape{2, 2, 6, 6}, backend)

	src := NewConv(DefaultConvConfig(2, 4), backend)
	want := src.Forward(x)
	dst := NewConv(DefaultConvConfig(2, 4), backend)
	dst.Forward(x)

	require.NoError(t, LoadStateDict[testBackend](dst, StateDict[testBackend](src)))
	assert.InDeltaSlice(t, want.Data(), dst.Forward(x).Data(), 1e-6)

	dict := StateDict[testBackend](src)
	delete(dict, "1.conv2d.bias")
	assert.ErrorContains(t, LoadStateDict[testBackend](dst, dict), `missing parameter "1.conv2d.bias"`)

	dict = StateDict[testBackend](src)
	dict["2.extra"] = dict["1.conv2d.bias"]
	assert.ErrorContains(t, LoadStateDict[testBackend](dst, dict), "unexpected parameters")

	// A failed load leaves the module untouched.
	fill(src.Parameters()[1], 3)
	fresh := NewConv(DefaultConvConfig(2, 4), backend)
	fresh.Forward(x)
	before := StateDict[testBackend](fresh)

	dict = StateDict[testBackend](src)
	dict["1.conv2d.bias"] = dict["0.conv2d.weight"]
	assert.ErrorContains(t, LoadStateDict[testBackend](fresh, dict), "does not match")
	assert.Equal(t, before["0.conv2d.weight"].AsFloat32(), fresh.Parameters()[0].Tensor().Data())

	dict = StateDict[testBackend](src)
	dict["9.extra"] = dict["1.conv2d.bias"]
	require.Error(t, LoadStateDict[testBackend](fresh, dict))
	assert.Equal(t, before["0.conv2d.weight"].AsFloat32(), fresh.Parameters()[0].Tensor().Data())
	assert.Equal(t, []float32{0, 0, 0, 0}, fresh.Parameters()[1].Tensor().Data())

	other := NewConv(DefaultConvConfig(2, 4, WithKernelSize(5)), backend)
	other.Forward(x)
	assert.ErrorContains(t, LoadStateDict[testBackend](dst, StateDict[testBackend](other)), "does not match")
}

func TestSaveLoadParameters(t *testing.T) {
	backend := cpu.New()
	x := tensor.Randn[float32](tensor.Shape{1, 4, 8}, backend)
	path := filepath.Join(t.TempDir(), "fire.safetensors")

	src := NewFire(4, 8, 0, 0.5, backend)
	want := src.Forward(x)
	require.NoError(t, SaveParameters[testBackend](path, src, map[string]string{"block": "fire"}))

	dst := NewFire(4, 8, 0, 0.5, backend)
	dst.Forward(x)
	meta, err := LoadParameters[testBackend](path, dst)
	require.NoError(t, err)
	assert.Equal(t, "fire", meta["block"])
	assert.InDeltaSlice(t, want.Data(), dst.Forward(x).Data(), 1e-5)

	// Loading into an unspecialized layer reports every key as unexpected.
	_, err = LoadParameters[testBackend](path, NewFire(4, 8, 0, 0.5, backend))
	assert.ErrorContains(t, err, "unexpected parameters")

	_, err = LoadParameters[testBackend](filepath.Join(t.TempDir(), "missing"), dst)
	assert.Error(t, err)
}
