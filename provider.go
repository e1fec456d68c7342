package keystone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/keystonedi/keystone/internal/graph"
	"github.com/keystonedi/keystone/internal/registry"
)

// Provider is the frozen root of a resolved dependency graph, produced by
// Collection.Build. Provider itself satisfies Resolver — resolving directly
// against it is only valid for Singleton and Transient bindings; Scoped
// bindings require a Scope (see NewScope).
type Provider struct {
	registry   *registry.Registry[Key]
	all        map[Key]*registry.Descriptor
	graph      *graph.Graph
	decorators map[Key][]decoratorFunc
	observers  []Observer
	cfg        Config

	ctx    context.Context
	cancel *cancellation

	singletonMu sync.RWMutex
	singletons  map[Key]any
	sf          singleflight.Group

	// disposeMu guards both dispose collections below. singletonDisposers
	// is keyed by Key so Close can walk it in reverse *registration* order
	// (registry.DisposalOrder), per spec.md §3's Singleton disposal rule —
	// distinct from a Scope's resolution-order LIFO. disposeBag holds
	// root-owned Transient disposers, which have no registration-order
	// identity (a Key may construct many Transient instances), so those
	// keep construction-order LIFO.
	disposeMu          sync.Mutex
	singletonDisposers map[Key]disposer
	disposeBag         []disposer

	closed atomic.Bool
}

func newProvider(reg *registry.Registry[Key], all map[Key]*registry.Descriptor, g *graph.Graph, decorators map[Key][]decoratorFunc, observers []Observer, cfg Config) *Provider {
	return &Provider{
		registry:           reg,
		all:                all,
		graph:              g,
		decorators:         decorators,
		observers:          observers,
		cfg:                cfg,
		ctx:                context.Background(),
		cancel:             newCancellation(nil),
		singletons:         make(map[Key]any),
		singletonDisposers: make(map[Key]disposer),
	}
}

// ---- Resolver ----

func (p *Provider) Context() context.Context { return p.ctx }

func (p *Provider) CurrentScope() (*Scope, bool) { return nil, false }

func (p *Provider) Cancellation() CancellationView { return p.cancel }

func (p *Provider) resolveOne(key Key) (any, error) {
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}
	return p.rootContext().resolveOne(key)
}

func (p *Provider) resolveMulti(trait, name string) ([]any, error) {
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}
	return p.rootContext().resolveMulti(trait, name)
}

func (p *Provider) rootContext() *resolveContext {
	return &resolveContext{provider: p, ctx: p.ctx, cancel: p.cancel}
}

// ---- singleton cache ----

func (p *Provider) getOrConstructSingleton(key Key, build func() (any, error)) (any, bool, error) {
	p.singletonMu.RLock()
	if v, ok := p.singletons[key]; ok {
		p.singletonMu.RUnlock()
		return v, true, nil
	}
	p.singletonMu.RUnlock()

	v, err, _ := p.sf.Do(key.String(), func() (any, error) {
		p.singletonMu.RLock()
		if v, ok := p.singletons[key]; ok {
			p.singletonMu.RUnlock()
			return v, nil
		}
		p.singletonMu.RUnlock()

		val, err := build()
		if err != nil {
			return nil, err
		}

		p.singletonMu.Lock()
		p.singletons[key] = val
		p.singletonMu.Unlock()
		return val, nil
	})
	return v, false, err
}

// addDisposer registers a root-owned Transient disposer. Transients have no
// per-Key registration-order identity (one Key can construct many
// instances), so these drain in construction-order LIFO.
func (p *Provider) addDisposer(d disposer) {
	p.disposeMu.Lock()
	defer p.disposeMu.Unlock()
	p.disposeBag = append(p.disposeBag, d)
}

// addSingletonDisposer registers the (at most one) disposer for a Singleton
// Key, keyed so Close can drain it in reverse registration order rather than
// construction order.
func (p *Provider) addSingletonDisposer(key Key, d disposer) {
	p.disposeMu.Lock()
	defer p.disposeMu.Unlock()
	p.singletonDisposers[key] = d
}

func (p *Provider) buildEagerSingletons(order []Key) error {
	rc := p.rootContext()
	for _, key := range order {
		d, ok := p.all[key]
		if !ok || Lifetime(d.Lifetime) != Singleton {
			continue
		}
		if _, err := rc.resolveDescriptor(key, d, Singleton); err != nil {
			return fmt.Errorf("keystone: building eager singleton %s: %w", key, err)
		}
	}
	return nil
}

// NewScope creates a root child Scope with no parent scope, optionally
// labeled via WithLabel for diagnostics. Use (*Scope).NewChild to nest
// further.
func (p *Provider) NewScope(ctx context.Context, opts ...ScopeOption) *Scope {
	cfg := scopeConfig{policy: ScopePropagateContext}
	for _, opt := range opts {
		opt(&cfg)
	}
	if ctx == nil {
		ctx = p.ctx
	}
	return newScope(p, nil, ctx, cfg.policy, cfg.label)
}

// Graph exports the node list of the resolved registration graph. Edges are
// never populated: constructors are opaque closures, so there is nothing to
// statically walk.
func (p *Provider) Graph() *graph.Graph { return p.graph }

// Close cancels the provider, then disposes every cached Singleton in
// reverse *registration* order (per spec.md §3: "released on Provider
// disposal in reverse registration order") followed by any root-owned
// Transient instances in reverse construction order, joining every disposer
// error it encounters.
func (p *Provider) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.cancel.Cancel()

	p.disposeMu.Lock()
	singletonDisposers := p.singletonDisposers
	p.singletonDisposers = nil
	bag := p.disposeBag
	p.disposeBag = nil
	p.disposeMu.Unlock()

	var errs []error

	order := p.registry.DisposalOrder
	for i := len(order) - 1; i >= 0; i-- {
		d, ok := singletonDisposers[order[i]]
		if !ok {
			continue
		}
		if err := d.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("keystone: disposing %s: %w", d.key, err))
		}
	}

	for i := len(bag) - 1; i >= 0; i-- {
		if err := bag[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("keystone: disposing %s: %w", bag[i].key, err))
		}
	}
	return errors.Join(errs...)
}
