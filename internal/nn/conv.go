package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// ConvConfig configures a convolution of any dimensionality.
//
// Per-axis fields hold one value for every spatial axis or a single value
// applied to all of them.
type ConvConfig struct {
	InChannels  int
	OutChannels int
	KernelSize  Spatial
	Stride      Spatial
	Padding     Padding
	Dilation    Spatial
	Groups      int
	Bias        bool
	PaddingMode tensor.PaddingMode
}

// ConvOption modifies a ConvConfig.
type ConvOption func(*ConvConfig)

// DefaultConvConfig returns a 3-wide, stride 1, same-padded convolution
// with bias, then applies opts.
func DefaultConvConfig(inChannels, outChannels int, opts ...ConvOption) ConvConfig {
	cfg := ConvConfig{
		InChannels:  inChannels,
		OutChannels: outChannels,
		KernelSize:  Spatial{3},
		Stride:      Spatial{1},
		Padding:     Same(),
		Dilation:    Spatial{1},
		Groups:      1,
		Bias:        true,
		PaddingMode: tensor.PadZeros,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithKernelSize sets the same kernel size on every spatial axis.
func WithKernelSize(k int) ConvOption {
	return func(cfg *ConvConfig) { cfg.KernelSize = Spatial{k} }
}

// WithKernelSizePerAxis sets one kernel size per spatial axis.
func WithKernelSizePerAxis(k ...int) ConvOption {
	return func(cfg *ConvConfig) { cfg.KernelSize = append(Spatial(nil), k...) }
}

// WithStride sets the stride, one value or one per spatial axis.
func WithStride(s ...int) ConvOption {
	return func(cfg *ConvConfig) { cfg.Stride = append(Spatial(nil), s...) }
}

// WithPadding sets the padding.
func WithPadding(p Padding) ConvOption {
	return func(cfg *ConvConfig) { cfg.Padding = p }
}

// WithDilation sets the dilation, one value or one per spatial axis.
func WithDilation(d ...int) ConvOption {
	return func(cfg *ConvConfig) { cfg.Dilation = append(Spatial(nil), d...) }
}

// WithGroups sets the number of channel groups.
func WithGroups(groups int) ConvOption {
	return func(cfg *ConvConfig) { cfg.Groups = groups }
}

// WithBias enables or disables the bias term.
func WithBias(bias bool) ConvOption {
	return func(cfg *ConvConfig) { cfg.Bias = bias }
}

// WithPaddingMode selects how padded positions are filled.
func WithPaddingMode(mode tensor.PaddingMode) ConvOption {
	return func(cfg *ConvConfig) { cfg.PaddingMode = mode }
}

// Validate checks the config without reference to any input: per-axis
// fields must hold 1 to 3 positive values and explicit padding must not be
// negative. Channel and group counts are checked when a concrete
// convolution is built.
func (cfg ConvConfig) Validate() error {
	const layer = "conv"
	if err := checkSpatial(layer, "kernel size", cfg.KernelSize, 1); err != nil {
		return err
	}
	if err := checkSpatial(layer, "stride", cfg.Stride, 1); err != nil {
		return err
	}
	if err := checkSpatial(layer, "dilation", cfg.Dilation, 1); err != nil {
		return err
	}
	if !cfg.Padding.IsSame() {
		if err := checkSpatial(layer, "padding", cfg.Padding.Values(), 0); err != nil {
			return err
		}
	}
	return nil
}

// Convolution is an N-D convolutional layer for a fixed input rank.
//
// Performs convolution: output = Conv(input, weight) + bias
//
// Input shape:  [batch, in_channels, D_1, ..., D_s]
// Weight shape: [out_channels, in_channels/groups, K_1, ..., K_s]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, O_1, ..., O_s]
//
// Where:
//
//	O_i = (D_i + 2*padding_i - dilation_i*(K_i-1) - 1) / stride_i + 1
type Convolution[B tensor.Backend] struct {
	name        string
	rank        Rank
	inChannels  int
	outChannels int
	kernelSize  []int
	stride      []int
	padding     []int
	dilation    []int
	groups      int
	paddingMode tensor.PaddingMode

	weight *Parameter[B] // [out_channels, in_channels/groups, K...]
	bias   *Parameter[B] // [out_channels] or nil

	backend B
}

// NewConv1D creates a convolution over [N, C, L] inputs.
func NewConv1D[B tensor.Backend](cfg ConvConfig, backend B) (*Convolution[B], error) {
	return newConvolution(Rank3, cfg, backend)
}

// NewConv2D creates a convolution over [N, C, H, W] inputs.
func NewConv2D[B tensor.Backend](cfg ConvConfig, backend B) (*Convolution[B], error) {
	return newConvolution(Rank4, cfg, backend)
}

// NewConv3D creates a convolution over [N, C, D, H, W] inputs.
func NewConv3D[B tensor.Backend](cfg ConvConfig, backend B) (*Convolution[B], error) {
	return newConvolution(Rank5, cfg, backend)
}

// NewConv declares a convolution whose dimensionality follows its first
// input: rank 3, 4 and 5 inputs build a 1D, 2D and 3D convolution. Same
// padding is resolved from that input's spatial extents.
//
// It panics with *InvalidConfigurationError if cfg fails Validate.
func NewConv[B tensor.Backend](cfg ConvConfig, backend B) *Deferred[B, ConvConfig] {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	factories := map[Rank]Factory[B, ConvConfig]{
		Rank3: convFactory[B](Rank3),
		Rank4: convFactory[B](Rank4),
		Rank5: convFactory[B](Rank5),
	}
	return NewDeferred[B, ConvConfig]("conv", factories, SamePaddingHook[B], cfg, backend)
}

func convFactory[B tensor.Backend](rank Rank) Factory[B, ConvConfig] {
	return func(cfg ConvConfig, backend B) (Module[B], error) {
		conv, err := newConvolution(rank, cfg, backend)
		if err != nil {
			return nil, err
		}
		return conv, nil
	}
}

func newConvolution[B tensor.Backend](rank Rank, cfg ConvConfig, backend B) (*Convolution[B], error) {
	nsp := rank.SpatialDims()
	name := fmt.Sprintf("conv%dd", nsp)

	if cfg.InChannels <= 0 || cfg.OutChannels <= 0 {
		return nil, invalidConfigf(name, "invalid channels in=%d, out=%d", cfg.InChannels, cfg.OutChannels)
	}
	if cfg.Groups <= 0 {
		return nil, invalidConfigf(name, "invalid groups %d", cfg.Groups)
	}
	if cfg.InChannels%cfg.Groups != 0 || cfg.OutChannels%cfg.Groups != 0 {
		return nil, invalidConfigf(name, "channels in=%d, out=%d must be divisible by groups %d",
			cfg.InChannels, cfg.OutChannels, cfg.Groups)
	}
	if cfg.Padding.IsSame() {
		return nil, invalidConfigf(name, "same padding depends on the input extents, declare the layer with NewConv")
	}

	kernel, err := expandField(name, "kernel size", cfg.KernelSize, nsp)
	if err != nil {
		return nil, err
	}
	stride, err := expandField(name, "stride", cfg.Stride, nsp)
	if err != nil {
		return nil, err
	}
	dilation, err := expandField(name, "dilation", cfg.Dilation, nsp)
	if err != nil {
		return nil, err
	}
	padding, err := expandField(name, "padding", cfg.Padding.Values(), nsp)
	if err != nil {
		return nil, err
	}
	for i := 0; i < nsp; i++ {
		if kernel[i] <= 0 || stride[i] <= 0 || dilation[i] <= 0 || padding[i] < 0 {
			return nil, invalidConfigf(name, "invalid window on axis %d: kernel=%d stride=%d dilation=%d padding=%d",
				i, kernel[i], stride[i], dilation[i], padding[i])
		}
	}

	// Xavier initialization for weights:
	//   fan_in  = in_channels/groups * prod(kernel)
	//   fan_out = out_channels * prod(kernel)
	receptive := productOf(kernel)
	weightShape := append(tensor.Shape{cfg.OutChannels, cfg.InChannels / cfg.Groups}, kernel...)
	weight := Xavier(cfg.InChannels/cfg.Groups*receptive, cfg.OutChannels*receptive, weightShape, backend)

	var bias *Parameter[B]
	if cfg.Bias {
		bias = NewParameter(name+".bias", Zeros(tensor.Shape{cfg.OutChannels}, backend))
	}

	return &Convolution[B]{
		name:        name,
		rank:        rank,
		inChannels:  cfg.InChannels,
		outChannels: cfg.OutChannels,
		kernelSize:  kernel,
		stride:      stride,
		padding:     padding,
		dilation:    dilation,
		groups:      cfg.Groups,
		paddingMode: cfg.PaddingMode,
		weight:      NewParameter(name+".weight", weight),
		bias:        bias,
		backend:     backend,
	}, nil
}

// OutputShape returns the output shape for an input shape, or an
// *InvalidConfigurationError when the layer cannot process it.
func (c *Convolution[B]) OutputShape(input tensor.Shape) (tensor.Shape, error) {
	if len(input) != int(c.rank) {
		return nil, invalidConfigf(c.name, "expected %dD input [N,C,spatial...], got shape %v", int(c.rank), input)
	}
	if input[1] != c.inChannels {
		return nil, invalidConfigf(c.name, "input channels %d != expected %d", input[1], c.inChannels)
	}
	out := tensor.Shape{input[0], c.outChannels}
	for i, n := range input[2:] {
		o := tensor.ConvOutputSize(n, c.kernelSize[i], c.stride[i], c.padding[i], c.dilation[i])
		if o <= 0 {
			return nil, invalidConfigf(c.name, "input extent %d on spatial axis %d is too small for kernel %d with dilation %d and padding %d",
				n, i, c.kernelSize[i], c.dilation[i], c.padding[i])
		}
		if !c.paddingMode.AllowsPadding(c.padding[i], n) {
			return nil, invalidConfigf(c.name, "%s padding %d does not fit input extent %d on spatial axis %d",
				c.paddingMode, c.padding[i], n, i)
		}
		out = append(out, o)
	}
	return out, nil
}

// Forward performs the forward pass.
func (c *Convolution[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if _, err := c.OutputShape(input.Shape()); err != nil {
		panic(err)
	}

	outputRaw := c.backend.Conv(input.Raw(), c.weight.Tensor().Raw(), tensor.ConvParams{
		Stride:      c.stride,
		Padding:     c.padding,
		Dilation:    c.dilation,
		Groups:      c.groups,
		PaddingMode: c.paddingMode,
	})
	output := tensor.New[float32, B](outputRaw, c.backend)

	if c.bias != nil {
		// Reshape bias to [1, out_channels, 1, ...] for broadcasting.
		return output.Add(c.bias.Tensor().Reshape(broadcastChannelShape(c.outChannels, c.rank)...))
	}
	return output
}

// Parameters returns all trainable parameters.
func (c *Convolution[B]) Parameters() []*Parameter[B] {
	if c.bias != nil {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// Weight returns the kernel parameter.
func (c *Convolution[B]) Weight() *Parameter[B] { return c.weight }

// Bias returns the bias parameter, or nil.
func (c *Convolution[B]) Bias() *Parameter[B] { return c.bias }

// Rank returns the input rank this layer accepts.
func (c *Convolution[B]) Rank() Rank { return c.rank }

// InChannels returns the number of input channels.
func (c *Convolution[B]) InChannels() int { return c.inChannels }

// OutChannels returns the number of output channels.
func (c *Convolution[B]) OutChannels() int { return c.outChannels }

// KernelSize returns the per-axis kernel size.
func (c *Convolution[B]) KernelSize() []int { return append([]int(nil), c.kernelSize...) }

// Stride returns the per-axis stride.
func (c *Convolution[B]) Stride() []int { return append([]int(nil), c.stride...) }

// Padding returns the per-axis padding, same padding already resolved.
func (c *Convolution[B]) Padding() []int { return append([]int(nil), c.padding...) }

// Dilation returns the per-axis dilation.
func (c *Convolution[B]) Dilation() []int { return append([]int(nil), c.dilation...) }

// Groups returns the number of channel groups.
func (c *Convolution[B]) Groups() int { return c.groups }

// String returns a string representation of the layer.
func (c *Convolution[B]) String() string {
	return fmt.Sprintf("Conv%dD(in_channels=%d, out_channels=%d, kernel_size=%v, stride=%v, padding=%v, dilation=%v, groups=%d, bias=%v, padding_mode=%s)",
		c.rank.SpatialDims(), c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding, c.dilation,
		c.groups, c.bias != nil, c.paddingMode)
}

// broadcastChannelShape returns [1, channels, 1, ...] for the given rank.
func broadcastChannelShape(channels int, rank Rank) []int {
	shape := make([]int, int(rank))
	for i := range shape {
		shape[i] = 1
	}
	shape[1] = channels
	return shape
}
