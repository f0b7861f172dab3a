package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// ConvTransposeConfig configures a transposed convolution of any
// dimensionality. Padding is always explicit: same padding has no meaning
// for an operator that grows its input.
type ConvTransposeConfig struct {
	InChannels    int
	OutChannels   int
	KernelSize    Spatial
	Stride        Spatial
	Padding       Spatial
	OutputPadding Spatial
	Dilation      Spatial
	Groups        int
	Bias          bool
}

// DefaultConvTransposeConfig returns a 3-wide, stride 1, unpadded
// transposed convolution with bias.
func DefaultConvTransposeConfig(inChannels, outChannels int) ConvTransposeConfig {
	return ConvTransposeConfig{
		InChannels:    inChannels,
		OutChannels:   outChannels,
		KernelSize:    Spatial{3},
		Stride:        Spatial{1},
		Padding:       Spatial{0},
		OutputPadding: Spatial{0},
		Dilation:      Spatial{1},
		Groups:        1,
		Bias:          true,
	}
}

// Validate checks the per-axis fields without reference to any input.
func (cfg ConvTransposeConfig) Validate() error {
	const layer = "conv_transpose"
	for _, f := range []struct {
		name     string
		values   Spatial
		minValue int
	}{
		{"kernel size", cfg.KernelSize, 1},
		{"stride", cfg.Stride, 1},
		{"padding", cfg.Padding, 0},
		{"output padding", cfg.OutputPadding, 0},
		{"dilation", cfg.Dilation, 1},
	} {
		if err := checkSpatial(layer, f.name, f.values, f.minValue); err != nil {
			return err
		}
	}
	return nil
}

// TransposedConvolution is an N-D transposed convolution for a fixed input
// rank, the adjoint of Convolution with the same window.
//
// Input shape:  [batch, in_channels, D_1, ..., D_s]
// Weight shape: [in_channels, out_channels/groups, K_1, ..., K_s]
// Output shape: [batch, out_channels, O_1, ..., O_s]
//
// Where:
//
//	O_i = (D_i-1)*stride_i - 2*padding_i + dilation_i*(K_i-1) + output_padding_i + 1
type TransposedConvolution[B tensor.Backend] struct {
	name          string
	rank          Rank
	inChannels    int
	outChannels   int
	kernelSize    []int
	stride        []int
	padding       []int
	outputPadding []int
	dilation      []int
	groups        int

	weight *Parameter[B]
	bias   *Parameter[B]

	backend B
}

// NewConvTranspose1D creates a transposed convolution over [N, C, L] inputs.
func NewConvTranspose1D[B tensor.Backend](cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	return newTransposedConvolution(Rank3, cfg, backend)
}

// NewConvTranspose2D creates a transposed convolution over [N, C, H, W] inputs.
func NewConvTranspose2D[B tensor.Backend](cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	return newTransposedConvolution(Rank4, cfg, backend)
}

// NewConvTranspose3D creates a transposed convolution over [N, C, D, H, W] inputs.
func NewConvTranspose3D[B tensor.Backend](cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	return newTransposedConvolution(Rank5, cfg, backend)
}

// NewConvTranspose declares a transposed convolution whose dimensionality
// follows its first input. The config is passed to the factory unchanged.
//
// It panics with *InvalidConfigurationError if cfg fails Validate.
func NewConvTranspose[B tensor.Backend](cfg ConvTransposeConfig, backend B) *Deferred[B, ConvTransposeConfig] {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	factories := make(map[Rank]Factory[B, ConvTransposeConfig], 3)
	for _, rank := range []Rank{Rank3, Rank4, Rank5} {
		factories[rank] = func(cfg ConvTransposeConfig, backend B) (Module[B], error) {
			conv, err := newTransposedConvolution(rank, cfg, backend)
			if err != nil {
				return nil, err
			}
			return conv, nil
		}
	}
	return NewDeferred[B, ConvTransposeConfig]("conv_transpose", factories, nil, cfg, backend)
}

func newTransposedConvolution[B tensor.Backend](rank Rank, cfg ConvTransposeConfig, backend B) (*TransposedConvolution[B], error) {
	nsp := rank.SpatialDims()
	name := fmt.Sprintf("conv_transpose%dd", nsp)

	if cfg.InChannels <= 0 || cfg.OutChannels <= 0 {
		return nil, invalidConfigf(name, "invalid channels in=%d, out=%d", cfg.InChannels, cfg.OutChannels)
	}
	if cfg.Groups <= 0 || cfg.InChannels%cfg.Groups != 0 || cfg.OutChannels%cfg.Groups != 0 {
		return nil, invalidConfigf(name, "channels in=%d, out=%d must be divisible by groups %d",
			cfg.InChannels, cfg.OutChannels, cfg.Groups)
	}

	fields := make(map[string][]int, 5)
	for _, f := range []struct {
		name   string
		values Spatial
	}{
		{"kernel size", cfg.KernelSize},
		{"stride", cfg.Stride},
		{"padding", cfg.Padding},
		{"output padding", cfg.OutputPadding},
		{"dilation", cfg.Dilation},
	} {
		values, err := expandField(name, f.name, f.values, nsp)
		if err != nil {
			return nil, err
		}
		fields[f.name] = values
	}
	kernel, stride, padding := fields["kernel size"], fields["stride"], fields["padding"]
	outputPadding, dilation := fields["output padding"], fields["dilation"]

	for i := 0; i < nsp; i++ {
		if kernel[i] <= 0 || stride[i] <= 0 || dilation[i] <= 0 || padding[i] < 0 || outputPadding[i] < 0 {
			return nil, invalidConfigf(name, "invalid window on axis %d: kernel=%d stride=%d dilation=%d padding=%d output_padding=%d",
				i, kernel[i], stride[i], dilation[i], padding[i], outputPadding[i])
		}
		if outputPadding[i] >= max(stride[i], dilation[i]) {
			return nil, invalidConfigf(name, "output padding %d on axis %d must be smaller than stride %d or dilation %d",
				outputPadding[i], i, stride[i], dilation[i])
		}
	}

	receptive := productOf(kernel)
	weightShape := append(tensor.Shape{cfg.InChannels, cfg.OutChannels / cfg.Groups}, kernel...)
	weight := Xavier(cfg.OutChannels/cfg.Groups*receptive, cfg.InChannels*receptive, weightShape, backend)

	var bias *Parameter[B]
	if cfg.Bias {
		bias = NewParameter(name+".bias", Zeros(tensor.Shape{cfg.OutChannels}, backend))
	}

	return &TransposedConvolution[B]{
		name:          name,
		rank:          rank,
		inChannels:    cfg.InChannels,
		outChannels:   cfg.OutChannels,
		kernelSize:    kernel,
		stride:        stride,
		padding:       padding,
		outputPadding: outputPadding,
		dilation:      dilation,
		groups:        cfg.Groups,
		weight:        NewParameter(name+".weight", weight),
		bias:          bias,
		backend:       backend,
	}, nil
}

// OutputShape returns the output shape for an input shape, or an
// *InvalidConfigurationError when the layer cannot process it.
func (c *TransposedConvolution[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	if len(input) != int(c.rank) {
		return nil, invalidConfigf(c.name, "expected %dD input [N,C,spatial...], got shape %v", int(c.rank), input)
	}
	if input[1] != c.inChannels {
		return nil, invalidConfigf(c.name, "input channels %d != expected %d", input[1], c.inChannels)
	}
	out := tensor.Shape{input[0], c.outChannels}
	for i, n := range input[2:] {
		o := tensor.ConvTransposeOutputSize(n, c.kernelSize[i], c.stride[i], c.padding[i], c.outputPadding[i], c.dilation[i])
		if o <= 0 {
			return nil, invalidConfigf(c.name, "input extent %d on spatial axis %d gives output extent %d with padding %d", n, i, o, c.padding[i])
		}
		out = append(out, o)
	}
	return out, nil
}

// Forward performs the forward pass.
func (c *TransposedConvolution[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if _, err := c.OutputShape(input.Shape()); err != nil {
		panic(err)
	}
	outputRaw := c.backend.ConvTranspose(input.Raw(), c.weight.Tensor().Raw(), tensor.ConvTransposeParams{
		Stride:        c.stride,
		Padding:       c.padding,
		OutputPadding: c.outputPadding,
		Dilation:      c.dilation,
		Groups:        c.groups,
	})
	output := tensor.New[float32, B](outputRaw, c.backend)
	if c.bias != nil {
		return output.Add(c.bias.Tensor().Reshape(broadcastChannelShape(c.outChannels, c.rank)...))
	}
	return output
}

// Parameters returns all trainable parameters.
func (c *TransposedConvolution[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Weight returns the kernel parameter.
func (c *TransposedConvolution[B]) Weight() *Parameter[B] { return c.weight }

// Rank returns the input rank this layer accepts.
func (c *TransposedConvolution[B]) Rank() Rank { return c.rank }

// String returns a string representation of the layer.
func (c *TransposedConvolution[B]) String() string {
	return fmt.Sprintf("ConvTranspose%dD(in_channels=%d, out_channels=%d, kernel_size=%v, stride=%v, padding=%v, output_padding=%v, dilation=%v, groups=%d, bias=%v)",
		c.rank.SpatialDims(), c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding, c.outputPadding,
		c.dilation, c.groups, c.bias != nil)
}
