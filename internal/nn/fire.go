package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// Fire is the SqueezeNet fire block:
//
//	s = squeeze(x)                            1x1 conv, in -> hidden
//	output = cat(expand1(s), expand3(s), 1)   1x1 conv and 3x3 conv (padding 1)
//
// The 1x1 expansion gets int(out*p) channels and the 3x3 expansion the
// rest. All three convolutions are deferred, so the block works on 1D, 2D
// and 3D inputs.
type Fire[B tensor.Backend] struct {
	inChannels     int
	outChannels    int
	hiddenChannels int
	p              float64

	squeeze *Deferred[B, ConvConfig]
	expand1 *Deferred[B, ConvConfig]
	expand3 *Deferred[B, ConvConfig]
}

// NewFire creates a Fire block. hidden <= 0 selects in/2 for in >= 16 and
// 8 otherwise. It panics with *InvalidConfigurationError unless 0 < p < 1
// and both expansions get at least one channel.
func NewFire[B tensor.Backend](inChannels, outChannels, hidden int, p float64, backend B) *Fire[B] {
	if hidden <= 0 {
		hidden = 8
		if inChannels >= 16 {
			hidden = inChannels / 2
		}
	}
	if !(p > 0 && p < 1) {
		panic(invalidConfigf("fire", "p must be in (0, 1), got %g", p))
	}
	small := int(float64(outChannels) * p)
	if small <= 0 || small >= outChannels {
		panic(invalidConfigf("fire", "p=%g of %d output channels leaves an empty expansion", p, outChannels))
	}

	return &Fire[B]{
		inChannels:     inChannels,
		outChannels:    outChannels,
		hiddenChannels: hidden,
		p:              p,
		squeeze:        NewConv(DefaultConvConfig(inChannels, hidden, WithKernelSize(1)), backend),
		expand1:        NewConv(DefaultConvConfig(hidden, small, WithKernelSize(1)), backend),
		expand3:        NewConv(DefaultConvConfig(hidden, outChannels-small, WithPadding(Explicit(1))), backend),
	}
}

// Forward performs the forward pass.
func (f *Fire[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s := f.squeeze.Forward(input)
	return tensor.Cat([]*tensor.Tensor[float32, B]{f.expand1.Forward(s), f.expand3.Forward(s)}, 1)
}

// Parameters returns the parameters of the three convolutions; empty
// before the first Forward.
func (f *Fire[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, conv := range []*Deferred[B, ConvConfig]{f.squeeze, f.expand1, f.expand3} {
		params = append(params, conv.Parameters()...)
	}
	return params
}

// HiddenChannels returns the squeeze width.
func (f *Fire[B]) HiddenChannels() int {
	return f.hiddenChannels
}

// String returns a string representation of the block.
func (f *Fire[B]) String() string {
	return fmt.Sprintf("Fire(in_channels=%d, out_channels=%d, hidden_channels=%d, p=%g)",
		f.inChannels, f.outChannels, f.hiddenChannels, f.p)
}
