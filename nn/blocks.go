// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// Residual computes module(x) + projection(x), with an identity projection
// when none is given.
type Residual[B tensor.Backend] = nn.Residual[B]

// NewResidual wraps module with a skip connection. projection may be nil.
func NewResidual[B tensor.Backend](module, projection Module[B]) *Residual[B] {
	return nn.NewResidual(module, projection)
}

// Dense concatenates module(x) with x along dim.
type Dense[B tensor.Backend] = nn.Dense[B]

// NewDense wraps module with a concatenating skip connection.
func NewDense[B tensor.Backend](module Module[B], dim int) *Dense[B] {
	return nn.NewDense(module, dim)
}

// Poly computes x + F(x) + F(F(x)) + ... with order applications of F.
type Poly[B tensor.Backend] = nn.Poly[B]

// NewPoly creates a Poly block. It panics when order < 1.
func NewPoly[B tensor.Backend](module Module[B], order int) *Poly[B] {
	return nn.NewPoly(module, order)
}

// MPoly computes x + F0(x) + F1(F0(x)) + ...
type MPoly[B tensor.Backend] = nn.MPoly[B]

// NewMPoly creates an MPoly block.
func NewMPoly[B tensor.Backend](modules ...Module[B]) *MPoly[B] {
	return nn.NewMPoly(modules...)
}

// WayPoly computes x + F0(x) + F1(x) + ...
type WayPoly[B tensor.Backend] = nn.WayPoly[B]

// NewWayPoly creates a WayPoly block.
func NewWayPoly[B tensor.Backend](modules ...Module[B]) *WayPoly[B] {
	return nn.NewWayPoly(modules...)
}

// Fire is the SqueezeNet fire block built from deferred convolutions.
type Fire[B tensor.Backend] = nn.Fire[B]

// NewFire creates a Fire block. hidden <= 0 selects the default squeeze
// width; p is the share of output channels given to the 1x1 expansion.
//
// Example:
//
//	fire := nn.NewFire(64, 128, 0, 0.5, backend)
func NewFire[B tensor.Backend](inChannels, outChannels, hidden int, p float64, backend B) *Fire[B] {
	return nn.NewFire(inChannels, outChannels, hidden, p, backend)
}

// ChannelShuffle interleaves the channels of consecutive groups.
type ChannelShuffle[B tensor.Backend] = nn.ChannelShuffle[B]

// NewChannelShuffle creates a ChannelShuffle for the given group count.
func NewChannelShuffle[B tensor.Backend](groups int) *ChannelShuffle[B] {
	return nn.NewChannelShuffle[B](groups)
}

// ChannelSplit splits a tensor in two parts along a dimension.
type ChannelSplit[B tensor.Backend] = nn.ChannelSplit[B]

// NewChannelSplit creates a ChannelSplit whose first part holds the share
// p of the extent along dim.
func NewChannelSplit[B tensor.Backend](p float64, dim int) *ChannelSplit[B] {
	return nn.NewChannelSplit[B](p, dim)
}

// SqueezeExcitation rescales channels by learned excitation weights in
// [0, 1] computed from the spatial mean of each channel.
type SqueezeExcitation[B tensor.Backend] = nn.SqueezeExcitation[B]

// NewSqueezeExcitation creates a SqueezeExcitation block. hidden <= 0
// selects in/16.
//
// Example:
//
//	se := nn.NewSqueezeExcitation(64, 0, backend) // hidden = 4
//	y := se.Forward(x)                            // [N, 64, ...] -> [N, 64, ...]
func NewSqueezeExcitation[B tensor.Backend](inChannels, hidden int, backend B) *SqueezeExcitation[B] {
	return nn.NewSqueezeExcitation(inChannels, hidden, backend)
}
