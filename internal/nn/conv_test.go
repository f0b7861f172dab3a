package nn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convkit/internal/backend/cpu"
	"github.com/born-ml/convkit/internal/tensor"
)

func fromSlice(t *testing.T, backend testBackend, shape tensor.Shape, data ...float32) *tensor.Tensor[float32, testBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, backend)
	require.NoError(t, err)
	return x
}

func fill(p *Parameter[testBackend], value float32) {
	data := p.Tensor().Data()
	for i := range data {
		data[i] = value
	}
}

func TestConv_SameOutputShape2D(t *testing.T) {
	backend := cpu.New()
	conv := NewConv(DefaultConvConfig(3, 8), backend)
	x := tensor.Randn[float32](tensor.Shape{2, 3, 16, 16}, backend)

	y := conv.Forward(x)
	assert.Equal(t, tensor.Shape{2, 8, 16, 16}, y.Shape())

	rank, ok := conv.Rank()
	require.True(t, ok)
	assert.Equal(t, Rank4, rank)

	delegate, ok := conv.Delegate().(*Convolution[testBackend])
	require.True(t, ok)
	assert.Equal(t, []int{1, 1}, delegate.Padding())
	assert.Equal(t, []int{3, 3}, delegate.KernelSize())
	assert.Equal(t, tensor.Shape{8, 3, 3, 3}, delegate.Weight().Tensor().Shape())
	assert.Equal(t, 8*3*3*3+8, CountParameters[testBackend](conv))
}

func TestConv_SameOutputShapePerRank(t *testing.T) {
	backend := cpu.New()
	tests := []struct {
		name   string
		opts   []ConvOption
		input  tensor.Shape
		output tensor.Shape
	}{
		{"1d", nil, tensor.Shape{1, 2, 11}, tensor.Shape{1, 4, 11}},
		{"1d dilated", []ConvOption{WithKernelSize(5), WithDilation(2)}, tensor.Shape{1, 2, 10}, tensor.Shape{1, 4, 10}},
		{"2d per-axis kernel", []ConvOption{WithKernelSizePerAxis(1, 5)}, tensor.Shape{2, 2, 7, 9}, tensor.Shape{2, 4, 7, 9}},
		{"2d strided even extents", []ConvOption{WithStride(2)}, tensor.Shape{1, 2, 16, 8}, tensor.Shape{1, 4, 16, 8}},
		{"3d", nil, tensor.Shape{1, 2, 4, 5, 6}, tensor.Shape{1, 4, 4, 5, 6}},
		{"3d grouped", []ConvOption{WithGroups(2)}, tensor.Shape{1, 2, 3, 3, 3}, tensor.Shape{1, 4, 3, 3, 3}},
		{"explicit padding", []ConvOption{WithPadding(Explicit(0))}, tensor.Shape{1, 2, 7, 7}, tensor.Shape{1, 4, 5, 5}},
		{"explicit stride", []ConvOption{WithPadding(Explicit(1)), WithStride(2)}, tensor.Shape{1, 2, 7}, tensor.Shape{1, 4, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConv(DefaultConvConfig(2, 4, tt.opts...), backend)
			y, err := TryForward[testBackend](conv, tensor.Randn[float32](tt.input, backend))
			require.NoError(t, err)
			assert.Equal(t, tt.output, y.Shape())

			rank, _ := conv.Rank()
			assert.Equal(t, len(tt.input), int(rank))
		})
	}
}

func TestConv_Values1D(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 5}, 1, 1, 1, 1, 1)

	conv := NewConv(DefaultConvConfig(1, 1, WithBias(false)), backend)
	_, err := conv.Specialize(x.Shape())
	require.NoError(t, err)
	fill(conv.Delegate().(*Convolution[testBackend]).Weight(), 1)

	y := conv.Forward(x)
	assert.Equal(t, []float32{2, 3, 3, 3, 2}, y.Data())
}

func TestConv_Bias(t *testing.T) {
	backend := cpu.New()
	conv, err := NewConv2D(DefaultConvConfig(1, 2, WithKernelSize(1), WithPadding(Explicit(0))), backend)
	require.NoError(t, err)
	fill(conv.Weight(), 2)
	conv.Bias().Tensor().Data()[0] = 0.5
	conv.Bias().Tensor().Data()[1] = -1

	x := fromSlice(t, backend, tensor.Shape{1, 1, 2, 2}, 1, 2, 3, 4)
	y := conv.Forward(x)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, y.Shape())
	assert.Equal(t, []float32{2.5, 4.5, 6.5, 8.5, 1, 3, 5, 7}, y.Data())
	assert.Len(t, conv.Parameters(), 2)

	noBias, err := NewConv2D(DefaultConvConfig(1, 2, WithBias(false), WithPadding(Explicit(1))), backend)
	require.NoError(t, err)
	assert.Nil(t, noBias.Bias())
	assert.Len(t, noBias.Parameters(), 1)
}

func TestConv_Groups(t *testing.T) {
	backend := cpu.New()
	conv, err := NewConv1D(DefaultConvConfig(4, 2, WithKernelSize(1), WithPadding(Explicit(0)), WithGroups(2), WithBias(false)), backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 1}, conv.Weight().Tensor().Shape())
	fill(conv.Weight(), 1)

	// Each output channel sums its own pair of input channels.
	x := fromSlice(t, backend, tensor.Shape{1, 4, 2}, 1, 2, 10, 20, 100, 200, 1000, 2000)
	y := conv.Forward(x)
	assert.Equal(t, []float32{11, 22, 1100, 2200}, y.Data())
}

func TestConv_PaddingModes(t *testing.T) {
	backend := cpu.New()
	x := fromSlice(t, backend, tensor.Shape{1, 1, 4}, 1, 2, 3, 4)
	tests := []struct {
		mode tensor.PaddingMode
		want []float32
	}{
		{tensor.PadZeros, []float32{3, 6, 9, 7}},
		{tensor.PadCircular, []float32{7, 6, 9, 8}},
		{tensor.PadReflect, []float32{5, 6, 9, 10}},
		{tensor.PadReplicate, []float32{4, 6, 9, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			conv := NewConv(DefaultConvConfig(1, 1, WithBias(false), WithPaddingMode(tt.mode)), backend)
			_, err := conv.Specialize(x.Shape())
			require.NoError(t, err)
			fill(conv.Delegate().(*Convolution[testBackend]).Weight(), 1)
			assert.Equal(t, tt.want, conv.Forward(x).Data())
		})
	}
}

func TestConv_FactoryErrors(t *testing.T) {
	backend := cpu.New()
	tests := []struct {
		name string
		cfg  ConvConfig
	}{
		{"zero in channels", DefaultConvConfig(0, 4, WithPadding(Explicit(1)))},
		{"zero out channels", DefaultConvConfig(4, 0, WithPadding(Explicit(1)))},
		{"indivisible groups", DefaultConvConfig(3, 4, WithGroups(2), WithPadding(Explicit(1)))},
		{"zero groups", DefaultConvConfig(4, 4, WithGroups(0), WithPadding(Explicit(1)))},
		{"same padding", DefaultConvConfig(4, 4)},
		{"kernel length", DefaultConvConfig(4, 4, WithKernelSizePerAxis(3, 3, 3), WithPadding(Explicit(1)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConv2D(tt.cfg, backend)
			var cfgErr *InvalidConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, "conv2d", cfgErr.Layer)
		})
	}
}

func TestConv_DeferredFactoryErrors(t *testing.T) {
	backend := cpu.New()
	x := tensor.Zeros[float32](tensor.Shape{1, 3, 8, 8}, backend)

	grouped := NewConv(DefaultConvConfig(3, 4, WithGroups(2)), backend)
	_, err := TryForward[testBackend](grouped, x)
	var cfgErr *InvalidConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.False(t, grouped.Specialized())

	even := NewConv(DefaultConvConfig(3, 4, WithKernelSizePerAxis(3, 2)), backend)
	_, err = TryForward[testBackend](even, x)
	var paddingErr *PaddingError
	require.True(t, errors.As(err, &paddingErr), "got %v", err)
	assert.Equal(t, 1, paddingErr.Axis)

	// Even kernels are fine with explicit padding.
	explicit := NewConv(DefaultConvConfig(3, 4, WithKernelSize(2), WithPadding(Explicit(0))), backend)
	y, err := TryForward[testBackend](explicit, x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 4, 7, 7}, y.Shape())
}

func TestConv_InputErrors(t *testing.T) {
	backend := cpu.New()
	conv := NewConv(DefaultConvConfig(3, 4, WithPadding(Explicit(0))), backend)
	_, err := TryForward[testBackend](conv, tensor.Zeros[float32](tensor.Shape{1, 3, 8, 8}, backend))
	require.NoError(t, err)

	var cfgErr *InvalidConfigurationError
	_, err = TryForward[testBackend](conv, tensor.Zeros[float32](tensor.Shape{1, 2, 8, 8}, backend))
	assert.True(t, errors.As(err, &cfgErr), "channel mismatch: %v", err)

	_, err = TryForward[testBackend](conv, tensor.Zeros[float32](tensor.Shape{1, 3, 2, 8}, backend))
	assert.True(t, errors.As(err, &cfgErr), "extent too small: %v", err)

	delegate := conv.Delegate().(*Convolution[testBackend])
	_, err = delegate.OutputShape(tensor.Shape{1, 3, 8})
	assert.True(t, errors.As(err, &cfgErr), "rank: %v", err)
}

func TestConv_ShapeDependentErrors(t *testing.T) {
	backend := cpu.New()
	var cfgErr *InvalidConfigurationError

	strided := NewConv(DefaultConvConfig(1, 1, WithKernelSize(5), WithStride(2), WithPadding(Explicit(0))), backend)
	y, err := TryForward[testBackend](strided, tensor.Zeros[float32](tensor.Shape{1, 1, 4, 4}, backend))
	assert.True(t, errors.As(err, &cfgErr), "strided window larger than input: %v", err)
	assert.Nil(t, y)

	tests := []struct {
		name    string
		mode    tensor.PaddingMode
		padding Padding
		fits    bool
	}{
		{"zeros", tensor.PadZeros, Same(), true},
		{"reflect at extent", tensor.PadReflect, Same(), false},
		{"circular at extent", tensor.PadCircular, Same(), true},
		{"circular beyond extent", tensor.PadCircular, Explicit(3), false},
		{"replicate beyond extent", tensor.PadReplicate, Explicit(3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// kernel 5 resolves to same padding 2 on an extent of 2.
			conv := NewConv(DefaultConvConfig(1, 1, WithKernelSize(5), WithPadding(tt.padding), WithPaddingMode(tt.mode)), backend)
			_, err := TryForward[testBackend](conv, tensor.Zeros[float32](tensor.Shape{1, 1, 2}, backend))
			if tt.fits {
				assert.NoError(t, err)
				return
			}
			var cfgErr *InvalidConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, "conv1d", cfgErr.Layer)
		})
	}
}

func TestNewConv_PanicsOnMalformedConfig(t *testing.T) {
	backend := cpu.New()
	for name, cfg := range map[string]ConvConfig{
		"too many axes":    DefaultConvConfig(1, 1, WithStride(1, 1, 1, 1)),
		"zero stride":      DefaultConvConfig(1, 1, WithStride(0)),
		"negative padding": DefaultConvConfig(1, 1, WithPadding(Explicit(-1))),
		"empty kernel":     DefaultConvConfig(1, 1, WithKernelSizePerAxis()),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, func() { NewConv(cfg, backend) })
		})
	}
}

func TestConvTranspose_Shapes(t *testing.T) {
	backend := cpu.New()
	tests := []struct {
		name   string
		cfg    ConvTransposeConfig
		input  tensor.Shape
		output tensor.Shape
	}{
		{"1d", DefaultConvTransposeConfig(2, 3), tensor.Shape{1, 2, 5}, tensor.Shape{1, 3, 7}},
		{"2d upsample", func() ConvTransposeConfig {
			cfg := DefaultConvTransposeConfig(2, 3)
			cfg.KernelSize, cfg.Stride, cfg.Padding, cfg.OutputPadding = Spatial{3}, Spatial{2}, Spatial{1}, Spatial{1}
			return cfg
		}(), tensor.Shape{2, 2, 4, 4}, tensor.Shape{2, 3, 8, 8}},
		{"3d", DefaultConvTransposeConfig(2, 4), tensor.Shape{1, 2, 2, 3, 4}, tensor.Shape{1, 4, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layer := NewConvTranspose(tt.cfg, backend)
			y, err := TryForward[testBackend](layer, tensor.Randn[float32](tt.input, backend))
			require.NoError(t, err)
			assert.Equal(t, tt.output, y.Shape())
		})
	}
}

func TestConvTranspose_Values(t *testing.T) {
	backend := cpu.New()
	cfg := DefaultConvTransposeConfig(1, 1)
	cfg.KernelSize = Spatial{2}
	cfg.Stride = Spatial{2}
	cfg.Bias = false
	layer, err := NewConvTranspose1D(cfg, backend)
	require.NoError(t, err)
	copy(layer.Weight().Tensor().Data(), []float32{1, 10})

	y := layer.Forward(fromSlice(t, backend, tensor.Shape{1, 1, 3}, 1, 2, 3))
	assert.Equal(t, []float32{1, 10, 2, 20, 3, 30}, y.Data())
}

func TestConvTranspose_InvalidConfiguration(t *testing.T) {
	backend := cpu.New()

	cfg := DefaultConvTransposeConfig(2, 2)
	cfg.OutputPadding = Spatial{1}
	_, err := NewConvTranspose2D(cfg, backend)
	var cfgErr *InvalidConfigurationError
	require.True(t, errors.As(err, &cfgErr), "output padding without stride: %v", err)

	cfg = DefaultConvTransposeConfig(3, 2)
	cfg.Groups = 2
	_, err = NewConvTranspose3D(cfg, backend)
	assert.True(t, errors.As(err, &cfgErr), "groups: %v", err)

	cfg = DefaultConvTransposeConfig(2, 2)
	cfg.Stride = Spatial{0}
	assert.Panics(t, func() { NewConvTranspose(cfg, backend) })
}
