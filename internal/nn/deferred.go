package nn

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/convkit/internal/tensor"
)

// Factory builds the concrete operator of one rank from a layer config.
type Factory[B tensor.Backend, C any] func(cfg C, backend B) (Module[B], error)

// Hook builds the delegate of a deferred layer once the shape of its first
// input is known. It may derive a new config from the input shape before
// calling factory.
type Hook[B tensor.Backend, C any] func(input tensor.Shape, factory Factory[B, C], cfg C, backend B) (Module[B], error)

// DirectHook calls the factory with the stored config unchanged.
func DirectHook[B tensor.Backend, C any](_ tensor.Shape, factory Factory[B, C], cfg C, backend B) (Module[B], error) {
	return factory(cfg, backend)
}

// specialization is the resolved state of a Deferred. Exactly one of
// delegate and err is set.
type specialization[B tensor.Backend] struct {
	rank     Rank
	delegate Module[B]
	err      error
}

// Deferred is a rank-agnostic layer declaration.
//
// It holds a factory per supported input rank and a config shared by all
// of them. Nothing is built until the first Forward: the input rank then
// selects the factory, the hook builds the delegate (resolving same
// padding, for instance) and every later call goes straight to the
// delegate.
//
// The transition happens at most once and is safe for concurrent first
// calls. A failed specialization is permanent: later calls return the same
// error without calling the factory again. Once specialized, an input of
// any other rank fails with *ConfigurationMismatchError.
//
// Example:
//
//	conv := nn.NewConv(nn.DefaultConvConfig(3, 8), backend)
//	y := conv.Forward(x) // x is [2, 3, 16, 16]: builds a 2D convolution with padding (1, 1)
type Deferred[B tensor.Backend, C any] struct {
	name      string
	factories map[Rank]Factory[B, C]
	hook      Hook[B, C]
	cfg       C
	backend   B

	mu    sync.Mutex
	state atomic.Pointer[specialization[B]]
}

// NewDeferred creates a deferred layer. A nil hook means DirectHook.
//
// It never inspects a tensor: config validation beyond what the caller
// already did happens in the factories, at specialization.
func NewDeferred[B tensor.Backend, C any](name string, factories map[Rank]Factory[B, C], hook Hook[B, C], cfg C, backend B) *Deferred[B, C] {
	if hook == nil {
		hook = DirectHook[B, C]
	}
	table := make(map[Rank]Factory[B, C], len(factories))
	for r, f := range factories {
		table[r] = f
	}
	return &Deferred[B, C]{
		name:      name,
		factories: table,
		hook:      hook,
		cfg:       cfg,
		backend:   backend,
	}
}

// Specialize returns the delegate for an input of the given shape,
// building it on the first call.
func (d *Deferred[B, C]) Specialize(input tensor.Shape) (Module[B], error) {
	if s := d.state.Load(); s != nil {
		return d.resolved(s, input)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.state.Load(); s != nil {
		return d.resolved(s, input)
	}
	s := d.build(input)
	d.state.Store(s)
	if s.err != nil {
		klog.V(1).Infof("%s: specialization for input %v failed: %v", d.name, input, s.err)
		return nil, s.err
	}
	klog.V(1).Infof("%s: specialized for %s on input %v: %v", d.name, s.rank, input, s.delegate)
	return s.delegate, nil
}

func (d *Deferred[B, C]) build(input tensor.Shape) *specialization[B] {
	rank := RankOf(input)
	factory, found := d.factories[rank]
	if !found {
		return &specialization[B]{err: errors.WithStack(&UnsupportedRankError{
			Layer:     d.name,
			Rank:      len(input),
			Supported: sortedRanks(d.factories),
		})}
	}
	delegate, err := d.hook(input.Clone(), factory, d.cfg, d.backend)
	if err == nil && delegate == nil {
		err = invalidConfigf(d.name, "factory for %s returned no module", rank)
	}
	if err != nil {
		return &specialization[B]{rank: rank, err: err}
	}
	return &specialization[B]{rank: rank, delegate: delegate}
}

func (d *Deferred[B, C]) resolved(s *specialization[B], input tensor.Shape) (Module[B], error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(input) != int(s.rank) {
		return nil, errors.WithStack(&ConfigurationMismatchError{Layer: d.name, Specialized: s.rank, Got: len(input)})
	}
	return s.delegate, nil
}

// Forward specializes on the first call and forwards input to the delegate.
//
// Specialization errors (*UnsupportedRankError, *PaddingError,
// *InvalidConfigurationError, *ConfigurationMismatchError) are raised as
// panics; use TryForward to get them as errors.
func (d *Deferred[B, C]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	delegate, err := d.Specialize(input.Shape())
	if err != nil {
		panic(err)
	}
	return delegate.Forward(input)
}

// Parameters returns the delegate's parameters, or none before a
// successful specialization.
func (d *Deferred[B, C]) Parameters() []*Parameter[B] {
	if delegate := d.Delegate(); delegate != nil {
		return delegate.Parameters()
	}
	return []*Parameter[B]{}
}

// Delegate returns the concrete operator, or nil before a successful
// specialization.
func (d *Deferred[B, C]) Delegate() Module[B] {
	if s := d.state.Load(); s != nil {
		return s.delegate
	}
	return nil
}

// Rank returns the rank the layer specialized for.
func (d *Deferred[B, C]) Rank() (Rank, bool) {
	if s := d.state.Load(); s != nil && s.err == nil {
		return s.rank, true
	}
	return 0, false
}

// Specialized reports whether a delegate has been built.
func (d *Deferred[B, C]) Specialized() bool {
	return d.Delegate() != nil
}

// Err returns the stored specialization failure, if any.
func (d *Deferred[B, C]) Err() error {
	if s := d.state.Load(); s != nil {
		return s.err
	}
	return nil
}

// Config returns the declared config. Same padding is kept symbolic here;
// the delegate holds the resolved amounts.
func (d *Deferred[B, C]) Config() C {
	return d.cfg
}

// SupportedRanks returns the ranks the layer can specialize for, ascending.
func (d *Deferred[B, C]) SupportedRanks() []Rank {
	return sortedRanks(d.factories)
}

// Name returns the layer name used in errors and logs.
func (d *Deferred[B, C]) Name() string {
	return d.name
}

// String describes the delegate once specialized, the declaration before.
func (d *Deferred[B, C]) String() string {
	if delegate := d.Delegate(); delegate != nil {
		return fmt.Sprint(delegate)
	}
	return fmt.Sprintf("%s(%+v, unspecialized)", d.name, d.cfg)
}
