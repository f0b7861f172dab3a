// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/convkit/internal/backend/cpu"
	"github.com/born-ml/convkit/internal/parallel"
	"github.com/born-ml/convkit/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of all tensor operations
// with gonum BLAS for the convolution GEMMs.
type Backend = internalcpu.CPUBackend

// Config controls how the kernels spread work over goroutines.
type Config = parallel.Config

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend using DefaultConfig.
//
// Example:
//
//	import (
//	    "github.com/born-ml/convkit/backend/cpu"
//	    "github.com/born-ml/convkit/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with an explicit parallel configuration.
//
// Example:
//
//	backend := cpu.NewWithConfig(cpu.DefaultConfig().WithMinChunkSize(1))
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the configuration New uses: one worker per
// physical core, parallelism disabled on single-core machines.
func DefaultConfig() Config {
	return parallel.DefaultConfig()
}
