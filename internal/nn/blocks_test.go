package nn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convkit/internal/backend/cpu"
	"github.com/born-ml/convkit/internal/tensor"
)

func TestResidual(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 3}, 1, 2, 3)

	block := NewResidual[testBackend](&scaleModule{factor: 3}, nil)
	assert.Equal(t, []float32{4, 8, 12}, block.Forward(x).Data())
	assert.Len(t, block.Parameters(), 1)

	projected := NewResidual[testBackend](&scaleModule{factor: 3}, &scaleModule{factor: -1})
	assert.Equal(t, []float32{2, 4, 6}, projected.Forward(x).Data())
	assert.Len(t, projected.Parameters(), 2)
}

func TestResidual_ShapeChangeIsAnError(t *testing.T) {
	backend := cpu.New()
	conv := NewConv(DefaultConvConfig(2, 4), backend)
	block := NewResidual[testBackend](conv, nil)

	_, err := TryForward[testBackend](block, tensor.Zeros[float32](tensor.Shape{1, 2, 5, 5}, backend))
	var cfgErr *InvalidConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "residual", cfgErr.Layer)

	withProjection := NewResidual[testBackend](
		NewConv(DefaultConvConfig(2, 4), backend),
		NewConv(DefaultConvConfig(2, 4, WithKernelSize(1)), backend),
	)
	y, err := TryForward[testBackend](withProjection, tensor.Zeros[float32](tensor.Shape{1, 2, 5, 5}, backend))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 5, 5}, y.Shape())
}

func TestDense(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 2}, 1, 2)

	block := NewDense[testBackend](&scaleModule{factor: 10}, 1)
	y := block.Forward(x)
	assert.Equal(t, tensor.Shape{1, 2, 2}, y.Shape())
	assert.Equal(t, []float32{10, 20, 1, 2}, y.Data())

	conv := NewDense[testBackend](NewConv(DefaultConvConfig(3, 5), backend), 1)
	out := conv.Forward(tensor.Zeros[float32](tensor.Shape{2, 3, 4, 4, 4}, backend))
	assert.Equal(t, tensor.Shape{2, 8, 4, 4, 4}, out.Shape())
}

func TestPoly(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 2}, 1, 2)

	// x + 2x + 4x + 8x
	block := NewPoly[testBackend](&scaleModule{factor: 2}, 3)
	assert.Equal(t, []float32{15, 30}, block.Forward(x).Data())
	assert.Equal(t, 3, block.Order())
	assert.Len(t, block.Parameters(), 1, "parameters are shared between terms")

	assert.Panics(t, func() { NewPoly[testBackend](&scaleModule{factor: 2}, 0) })
}

func TestMPoly(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 2}, 1, 2)

	// x + 2x + 3(2x)
	block := NewMPoly[testBackend](&scaleModule{factor: 2}, &scaleModule{factor: 3})
	assert.Equal(t, []float32{9, 18}, block.Forward(x).Data())
	assert.Len(t, block.Parameters(), 2)

	identity := NewMPoly[testBackend]()
	assert.Equal(t, []float32{1, 2}, identity.Forward(x).Data())
}

func TestWayPoly(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 2}, 1, 2)

	// x + 2x + 3x
	block := NewWayPoly[testBackend](&scaleModule{factor: 2}, &scaleModule{factor: 3})
	assert.Equal(t, []float32{6, 12}, block.Forward(x).Data())
	assert.Len(t, block.Parameters(), 2)

	identity := NewWayPoly[testBackend]()
	assert.Equal(t, []float32{1, 2}, identity.Forward(x).Data())
}

func TestChannelShuffle(t *testing.T) {
	backend := cpu.New()
	// Six channels of one element each, holding their channel index.
	x := fromSlice(t, backend, tensor.Shape{1, 6, 1}, 0, 1, 2, 3, 4, 5)

	shuffle := NewChannelShuffle[testBackend](2)
	y := shuffle.Forward(x)
	assert.Equal(t, tensor.Shape{1, 6, 1}, y.Shape())
	assert.Equal(t, []float32{0, 3, 1, 4, 2, 5}, y.Data())

	y = NewChannelShuffle[testBackend](3).Forward(x)
	assert.Equal(t, []float32{0, 2, 4, 1, 3, 5}, y.Data())

	// One group leaves the order unchanged.
	y = NewChannelShuffle[testBackend](1).Forward(x)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, y.Data())

	_, err := TryForward[testBackend](NewChannelShuffle[testBackend](4), x)
	var cfgErr *InvalidConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "got %v", err)

	assert.Panics(t, func() { NewChannelShuffle[testBackend](0) })
}

func TestChannelSplit(t *testing.T) {
	backend := cpu.New()
	x := tensor.Arange[float32](tensor.Shape{1, 4, 2}, backend)

	first, second := NewChannelSplit[testBackend](0.25, 1).Split(x)
	assert.Equal(t, tensor.Shape{1, 1, 2}, first.Shape())
	assert.Equal(t, tensor.Shape{1, 3, 2}, second.Shape())
	assert.Equal(t, []float32{0, 1}, first.Data())
	assert.Equal(t, []float32{2, 3, 4, 5, 6, 7}, second.Data())

	first, second = NewChannelSplit[testBackend](0.5, -1).Split(x)
	assert.Equal(t, tensor.Shape{1, 4, 1}, first.Shape())
	assert.Equal(t, tensor.Shape{1, 4, 1}, second.Shape())
	assert.Equal(t, []float32{0, 2, 4, 6}, first.Data())

	assert.Panics(t, func() { NewChannelSplit[testBackend](0.1, 1).Split(x) }, "empty first part")
	assert.Panics(t, func() { NewChannelSplit[testBackend](1, 1) })
}

func TestFire(t *testing.T) {
	backend := cpu.New()
	fire := NewFire(32, 64, 0, 0.5, backend)
	assert.Equal(t, 16, fire.HiddenChannels())
	assert.Empty(t, fire.Parameters())

	y := fire.Forward(tensor.Randn[float32](tensor.Shape{2, 32, 6, 6}, backend))
	assert.Equal(t, tensor.Shape{2, 64, 6, 6}, y.Shape())

	// squeeze 32->16 (k1), expand1 16->32 (k1), expand3 16->32 (k3), each with bias.
	want := (16*32 + 16) + (32*16 + 32) + (32*16*9 + 32)
	assert.Equal(t, want, CountParameters[testBackend](fire))
	assert.Len(t, fire.Parameters(), 6)

	small := NewFire(4, 10, 0, 0.3, backend)
	assert.Equal(t, 8, small.HiddenChannels())
	out := small.Forward(tensor.Randn[float32](tensor.Shape{1, 4, 7}, backend))
	assert.Equal(t, tensor.Shape{1, 10, 7}, out.Shape())

	assert.Panics(t, func() { NewFire(4, 10, 0, 0, backend) })
	assert.Panics(t, func() { NewFire(4, 1, 0, 0.5, backend) })
}

func TestSequential(t *testing.T) {
	backend := cpu.New()
	model := NewSequential[testBackend](
		NewConv(DefaultConvConfig(3, 8), backend),
		NewMaxPool(DefaultPoolConfig(2), backend),
		NewConv(DefaultConvConfig(8, 4, WithKernelSize(1)), backend),
	)
	assert.Equal(t, 3, model.Len())
	assert.Empty(t, model.Parameters())

	y := model.Forward(tensor.Randn[float32](tensor.Shape{2, 3, 8, 8}, backend))
	assert.Equal(t, tensor.Shape{2, 4, 4, 4}, y.Shape())
	assert.Equal(t, (8*3*9+8)+(4*8+4), CountParameters[testBackend](model))

	model.Add(NewAvgPool(DefaultPoolConfig(2), backend))
	assert.Equal(t, 4, model.Len())
	assert.Equal(t, tensor.Shape{2, 4, 2, 2}, model.Forward(tensor.Randn[float32](tensor.Shape{2, 3, 8, 8}, backend)).Shape())

	assert.Contains(t, model.String(), "(0): Conv2D")
	assert.Panics(t, func() { model.Module(4) })
}
