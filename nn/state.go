// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/convkit/internal/nn"
	"github.com/born-ml/convkit/tensor"
)

// StateDict returns a copy of the module's parameters keyed by
// "<index>.<parameter name>", e.g. "0.conv2d.weight".
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	return nn.StateDict(m)
}

// LoadStateDict copies dict into the module's parameters.
func LoadStateDict[B tensor.Backend](m Module[B], dict map[string]*tensor.RawTensor) error {
	return nn.LoadStateDict(m, dict)
}

// SaveParameters writes the module's parameters to a SafeTensors file.
//
// Example:
//
//	conv.Forward(x) // specialize first
//	err := nn.SaveParameters("conv.safetensors", conv, map[string]string{"layer": "conv"})
func SaveParameters[B tensor.Backend](path string, m Module[B], metadata map[string]string) error {
	return nn.SaveParameters(path, m, metadata)
}

// LoadParameters reads a file written by SaveParameters into the module and
// returns the file metadata.
func LoadParameters[B tensor.Backend](path string, m Module[B]) (map[string]string, error) {
	return nn.LoadParameters(path, m)
}
