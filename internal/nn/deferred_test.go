package nn

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convkit/internal/backend/cpu"
	"github.com/born-ml/convkit/internal/tensor"
)

type testBackend = *cpu.CPUBackend

// scaleModule multiplies its input by a constant and records which rank
// built it.
type scaleModule struct {
	rank   Rank
	factor float32
}

func (m *scaleModule) Forward(input *tensor.Tensor[float32, testBackend]) *tensor.Tensor[float32, testBackend] {
	return input.Mul(tensor.Full[float32](tensor.Shape{1}, m.factor, input.Backend()))
}

func (m *scaleModule) Parameters() []*Parameter[testBackend] {
	return []*Parameter[testBackend]{NewParameter("scale", tensor.Full[float32](tensor.Shape{1}, m.factor, cpu.New()))}
}

type scaleConfig struct {
	factor float32
}

// countingFactories returns a factory per rank 3, 4, 5 and a per-rank
// invocation counter.
func countingFactories() (map[Rank]Factory[testBackend, scaleConfig], map[Rank]*atomic.Int32) {
	factories := make(map[Rank]Factory[testBackend, scaleConfig])
	calls := make(map[Rank]*atomic.Int32)
	for _, rank := range []Rank{Rank3, Rank4, Rank5} {
		counter := &atomic.Int32{}
		calls[rank] = counter
		factories[rank] = func(cfg scaleConfig, _ testBackend) (Module[testBackend], error) {
			counter.Add(1)
			return &scaleModule{rank: rank, factor: cfg.factor}, nil
		}
	}
	return factories, calls
}

func TestDeferred_SingleSpecialization(t *testing.T) {
	backend := cpu.New()
	factories, calls := countingFactories()
	d := NewDeferred("scale", factories, nil, scaleConfig{factor: 2}, backend)

	assert.False(t, d.Specialized())
	assert.Empty(t, d.Parameters())
	assert.Nil(t, d.Delegate())

	x := tensor.Ones[float32](tensor.Shape{2, 3, 5, 5}, backend)
	for i := 0; i < 5; i++ {
		y := d.Forward(x)
		assert.Equal(t, float32(2), y.At(1, 2, 4, 4))
	}

	assert.Equal(t, int32(1), calls[Rank4].Load())
	assert.Zero(t, calls[Rank3].Load())
	assert.Zero(t, calls[Rank5].Load())
	assert.True(t, d.Specialized())
	assert.Len(t, d.Parameters(), 1)

	rank, ok := d.Rank()
	assert.True(t, ok)
	assert.Equal(t, Rank4, rank)
}

func TestDeferred_RankDispatch(t *testing.T) {
	backend := cpu.New()
	for _, tc := range []struct {
		shape tensor.Shape
		rank  Rank
	}{
		{tensor.Shape{1, 2, 7}, Rank3},
		{tensor.Shape{1, 2, 7, 7}, Rank4},
		{tensor.Shape{1, 2, 3, 7, 7}, Rank5},
	} {
		factories, calls := countingFactories()
		d := NewDeferred("scale", factories, nil, scaleConfig{factor: 1}, backend)

		delegate, err := d.Specialize(tc.shape)
		require.NoError(t, err)
		assert.Equal(t, tc.rank, delegate.(*scaleModule).rank)
		for rank, counter := range calls {
			if rank == tc.rank {
				assert.Equal(t, int32(1), counter.Load())
			} else {
				assert.Zero(t, counter.Load())
			}
		}
	}
}

func TestDeferred_UnsupportedRank(t *testing.T) {
	backend := cpu.New()
	for _, shape := range []tensor.Shape{{4, 3}, {1, 1, 2, 2, 2, 2}} {
		factories, calls := countingFactories()
		d := NewDeferred("scale", factories, nil, scaleConfig{factor: 1}, backend)

		_, err := d.Specialize(shape)
		var rankErr *UnsupportedRankError
		require.True(t, errors.As(err, &rankErr), "got %v", err)
		assert.Equal(t, len(shape), rankErr.Rank)
		assert.Equal(t, []Rank{Rank3, Rank4, Rank5}, rankErr.Supported)
		assert.Contains(t, err.Error(), "supported ranks: 3, 4, 5")

		for _, counter := range calls {
			assert.Zero(t, counter.Load())
		}

		// The failure is permanent, even for a supported rank.
		_, err = d.Specialize(tensor.Shape{1, 1, 4, 4})
		assert.True(t, errors.As(err, &rankErr))
		assert.Zero(t, calls[Rank4].Load())
		assert.False(t, d.Specialized())
		assert.Error(t, d.Err())
	}
}

func TestDeferred_FailureIsNotRetried(t *testing.T) {
	backend := cpu.New()
	var calls atomic.Int32
	boom := errors.New("boom")
	factories := map[Rank]Factory[testBackend, scaleConfig]{
		Rank4: func(scaleConfig, testBackend) (Module[testBackend], error) {
			calls.Add(1)
			return nil, boom
		},
	}
	d := NewDeferred("failing", factories, nil, scaleConfig{}, backend)
	x := tensor.Zeros[float32](tensor.Shape{1, 1, 2, 2}, backend)

	for i := 0; i < 3; i++ {
		_, err := TryForward[testBackend](d, x)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, d.Parameters())
}

func TestDeferred_RankMismatch(t *testing.T) {
	backend := cpu.New()
	factories, calls := countingFactories()
	d := NewDeferred("scale", factories, nil, scaleConfig{factor: 1}, backend)

	_, err := d.Specialize(tensor.Shape{1, 2, 8, 8})
	require.NoError(t, err)

	_, err = TryForward[testBackend](d, tensor.Zeros[float32](tensor.Shape{1, 2, 8}, backend))
	var mismatch *ConfigurationMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, Rank4, mismatch.Specialized)
	assert.Equal(t, 3, mismatch.Got)
	assert.Zero(t, calls[Rank3].Load())

	// The layer stays usable for its own rank.
	_, err = d.Specialize(tensor.Shape{4, 2, 3, 3})
	assert.NoError(t, err)
}

func TestDeferred_CustomHookSeesInputShape(t *testing.T) {
	backend := cpu.New()
	factories, _ := countingFactories()
	var seen tensor.Shape
	hook := func(input tensor.Shape, factory Factory[testBackend, scaleConfig], cfg scaleConfig, b testBackend) (Module[testBackend], error) {
		seen = input
		cfg.factor = float32(input[2])
		return factory(cfg, b)
	}
	d := NewDeferred[testBackend, scaleConfig]("scale", factories, hook, scaleConfig{factor: 1}, backend)

	y := d.Forward(tensor.Ones[float32](tensor.Shape{1, 1, 6}, backend))
	assert.Equal(t, tensor.Shape{1, 1, 6}, seen)
	assert.Equal(t, float32(6), y.At(0, 0, 0))
	assert.Equal(t, float32(1), d.Config().factor, "declared config is not modified by the hook")
}

func TestDeferred_ConcurrentFirstCalls(t *testing.T) {
	backend := cpu.New()
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	factories := map[Rank]Factory[testBackend, scaleConfig]{
		Rank4: func(cfg scaleConfig, _ testBackend) (Module[testBackend], error) {
			if calls.Add(1) == 1 {
				close(entered)
			}
			<-release
			return &scaleModule{rank: Rank4, factor: cfg.factor}, nil
		},
	}
	d := NewDeferred("scale", factories, nil, scaleConfig{factor: 3}, backend)

	const workers = 16
	delegates := make([]Module[testBackend], workers)
	var started, wg sync.WaitGroup
	started.Add(workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			m, err := d.Specialize(tensor.Shape{1, 1, 2, 2})
			assert.NoError(t, err)
			delegates[i] = m
		}()
	}
	// Hold the factory open until every worker is running and one of them
	// is inside it, so the others race against an in-flight specialization.
	started.Wait()
	<-entered
	assert.False(t, d.Specialized())
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, m := range delegates {
		assert.Same(t, delegates[0], m)
	}
}

func TestDeferred_DelegationIsTransparent(t *testing.T) {
	backend := cpu.New()
	conv := NewConv(DefaultConvConfig(3, 4), backend)
	x := tensor.Randn[float32](tensor.Shape{2, 3, 9, 7}, backend)

	viaWrapper := conv.Forward(x)
	viaDelegate := conv.Delegate().Forward(x)
	assert.Equal(t, viaWrapper.Data(), viaDelegate.Data())
	assert.Equal(t, viaWrapper.Shape(), viaDelegate.Shape())
}

func TestDeferred_String(t *testing.T) {
	backend := cpu.New()
	conv := NewConv(DefaultConvConfig(3, 4), backend)
	assert.Contains(t, conv.String(), "unspecialized")
	assert.Equal(t, "conv", conv.Name())
	assert.Equal(t, []Rank{Rank3, Rank4, Rank5}, conv.SupportedRanks())

	conv.Forward(tensor.Zeros[float32](tensor.Shape{1, 3, 5}, backend))
	assert.Contains(t, conv.String(), "Conv1D(in_channels=3, out_channels=4, kernel_size=[3]")
	assert.Contains(t, conv.String(), "padding=[1]")
}
