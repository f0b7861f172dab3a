// Package parallel provides parallel execution utilities for convkit's CPU kernels.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on the detected physical core count.
// Hyper-threads do not help the GEMM-bound kernels, so logical CPUs are
// only used when cpuid cannot report physical cores.
func DefaultConfig() Config {
	n := cpuid.CPU.PhysicalCores
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// WithMinChunkSize returns a copy of cfg using the given minimum chunk size.
// Kernels whose work items are large (a whole GEMM per item) use 1.
func (cfg Config) WithMinChunkSize(n int) Config {
	cfg.MinChunkSize = max(n, 1)
	return cfg
}

// String describes the configuration.
func (cfg Config) String() string {
	return fmt.Sprintf("parallel(enabled=%v, workers=%d, min_chunk=%d)", cfg.Enabled, cfg.NumWorkers, cfg.MinChunkSize)
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		// Sequential fallback.
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch optimized for batch*channels iteration pattern.
// Common in CNN operations like pooling.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	n := batch * channels
	For(n, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}

// Features lists the SIMD features relevant to the float kernels that the
// current CPU supports.
func Features() []string {
	var features []string
	for _, f := range []struct {
		name string
		id   cpuid.FeatureID
	}{
		{"SSE4.2", cpuid.SSE42},
		{"AVX", cpuid.AVX},
		{"AVX2", cpuid.AVX2},
		{"FMA3", cpuid.FMA3},
		{"AVX512F", cpuid.AVX512F},
		{"ASIMD", cpuid.ASIMD},
	} {
		if cpuid.CPU.Supports(f.id) {
			features = append(features, f.name)
		}
	}
	return features
}

// CPUName returns the CPU brand string reported by cpuid.
func CPUName() string {
	if cpuid.CPU.BrandName == "" {
		return runtime.GOARCH
	}
	return cpuid.CPU.BrandName
}
