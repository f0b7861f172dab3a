package nn

import (
	"fmt"

	"github.com/born-ml/convkit/internal/tensor"
)

// ChannelShuffle interleaves the channels of consecutive groups so that
// the next grouped convolution sees channels from every group:
//
//	[N, C, ...] -> [N, g, C/g, ...] -> swap axes 1, 2 -> [N, C, ...]
//
// groups is the group count of the preceding convolution.
type ChannelShuffle[B tensor.Backend] struct {
	groups int
}

// NewChannelShuffle creates a ChannelShuffle. It panics with
// *InvalidConfigurationError when groups < 1.
func NewChannelShuffle[B tensor.Backend](groups int) *ChannelShuffle[B] {
	if groups < 1 {
		panic(invalidConfigf("channel_shuffle", "groups must be >= 1, got %d", groups))
	}
	return &ChannelShuffle[B]{groups: groups}
}

// Forward performs the forward pass.
func (s *ChannelShuffle[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 2 || shape[1]%s.groups != 0 {
		panic(invalidConfigf("channel_shuffle", "channels of input %v must be divisible by groups %d", shape, s.groups))
	}

	grouped := append([]int{shape[0], s.groups, shape[1] / s.groups}, shape[2:]...)
	axes := make([]int, len(grouped))
	for i := range axes {
		axes[i] = i
	}
	axes[1], axes[2] = 2, 1

	return input.Reshape(grouped...).Transpose(axes...).Reshape(shape...)
}

// Parameters returns an empty slice.
func (s *ChannelShuffle[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String returns a string representation of the layer.
func (s *ChannelShuffle[B]) String() string {
	return fmt.Sprintf("ChannelShuffle(groups=%d)", s.groups)
}

// ChannelSplit splits a tensor in two along dim: the first part holds
// int(extent*p) entries, the second the remainder.
//
// It is not a Module since it produces two tensors.
type ChannelSplit[B tensor.Backend] struct {
	p   float64
	dim int
}

// NewChannelSplit creates a ChannelSplit. It panics with
// *InvalidConfigurationError unless 0 < p < 1.
func NewChannelSplit[B tensor.Backend](p float64, dim int) *ChannelSplit[B] {
	if !(p > 0 && p < 1) {
		panic(invalidConfigf("channel_split", "p must be in (0, 1), got %g", p))
	}
	return &ChannelSplit[B]{p: p, dim: dim}
}

// Split returns the two parts.
func (s *ChannelSplit[B]) Split(input *tensor.Tensor[float32, B]) (first, second *tensor.Tensor[float32, B]) {
	shape := input.Shape()
	dim := s.dim
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(invalidConfigf("channel_split", "dimension %d out of range for input %v", s.dim, shape))
	}
	size := int(float64(shape[dim]) * s.p)
	if size <= 0 || size >= shape[dim] {
		panic(invalidConfigf("channel_split", "p=%g of extent %d leaves an empty part", s.p, shape[dim]))
	}
	parts := input.Split([]int{size, shape[dim] - size}, dim)
	return parts[0], parts[1]
}

// String returns a string representation of the layer.
func (s *ChannelSplit[B]) String() string {
	return fmt.Sprintf("ChannelSplit(p=%g, dim=%d)", s.p, s.dim)
}
