package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestForBatch(t *testing.T) {
	cfg := DefaultConfig()

	batch, channels := 4, 8
	results := make([][]bool, batch)
	for b := range results {
		results[b] = make([]bool, channels)
	}

	ForBatch(batch, channels, func(b, c int) {
		results[b][c] = true
	}, cfg)

	for b := 0; b < batch; b++ {
		for c := 0; c < channels; c++ {
			if !results[b][c] {
				t.Errorf("Missing result at [%d][%d]", b, c)
			}
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var counter int64
	For(100, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != 100 {
		t.Errorf("Expected 100, got %d", counter)
	}
}

func TestFor_SmallChunk(t *testing.T) {
	// Test that small work units fall back to sequential.
	cfg := DefaultConfig()

	var counter int64
	n := cfg.MinChunkSize - 1

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_LargeItems(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4}.WithMinChunkSize(0)
	assert.Equal(t, 1, cfg.MinChunkSize)

	seen := make([]int32, 6)
	For(len(seen), func(i int) {
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	for i, v := range seen {
		assert.Equal(t, int32(1), v, "item %d", i)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Positive(t, cfg.NumWorkers)
	assert.Equal(t, cfg.NumWorkers > 1, cfg.Enabled)
	assert.Contains(t, cfg.String(), "workers=")
	assert.NotEmpty(t, CPUName())
	for _, f := range Features() {
		assert.NotEmpty(t, f)
	}
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfgSeq)
		}
	})
}

func BenchmarkForBatch(b *testing.B) {
	cfg := DefaultConfig()
	batch, channels := 16, 64

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			ForBatch(batch, channels, func(bc, c int) {
				atomic.AddInt64(&sum, int64(bc*channels+c))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			ForBatch(batch, channels, func(bc, c int) {
				atomic.AddInt64(&sum, int64(bc*channels+c))
			}, cfgSeq)
		}
	})
}
