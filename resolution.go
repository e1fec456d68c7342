package keystone

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/keystonedi/keystone/internal/registry"
)

// resolveContext is the Resolver handed to constructors; Provider and Scope
// also satisfy Resolver and delegate to a fresh resolveContext. Every lookup,
// whether issued by user code against a Provider/Scope or by a constructor
// against the Resolver it was handed, funnels through resolveOne/
// resolveMulti below — there is exactly one resolution algorithm.
//
// path is rebuilt (never mutated in place) on every hop, so concurrent
// branches of a multi-binding resolution never share a backing array: each
// branch owns its own execution-local view of the path, which is what makes
// the cycle guard correct without any thread-local storage.
type resolveContext struct {
	provider *Provider
	scope    *Scope // nil when resolving directly against the root Provider
	ctx      context.Context
	cancel   *cancellation
	path     []Key

	// pinnedSingleton names the nearest enclosing Singleton under
	// construction, if any. A Scoped dependency requested while this is
	// set is a captive-dependency hazard: the Singleton would retain a
	// reference outliving the Scope that produced it.
	pinnedSingleton *Key
}

func (rc *resolveContext) Context() context.Context { return rc.ctx }

func (rc *resolveContext) CurrentScope() (*Scope, bool) {
	if rc.scope == nil {
		return nil, false
	}
	return rc.scope, true
}

func (rc *resolveContext) Cancellation() CancellationView { return rc.cancel }

func (rc *resolveContext) resolveOne(key Key) (any, error) {
	if rc.cancel.Cancelled() {
		return nil, ErrCancelled
	}
	for _, seen := range rc.path {
		if seen == key {
			return nil, &CircularError{Path: append(append([]Key(nil), rc.path...), key)}
		}
	}
	if len(rc.path) >= rc.provider.cfg.MaxResolutionDepth {
		return nil, &DepthExceededError{Limit: rc.provider.cfg.MaxResolutionDepth}
	}

	d, ok := rc.provider.registry.Single[key]
	if !ok {
		return nil, &NotFoundError{Key: key}
	}

	if rc.scope != nil {
		if v, ok := rc.scope.scopeLocalValue(key); ok {
			return v, nil
		}
	}

	lifetime := Lifetime(d.Lifetime)
	if lifetime == Scoped {
		if rc.scope == nil {
			return nil, &ScopeRequiredError{Key: key}
		}
	}
	if rc.pinnedSingleton != nil && lifetime == Scoped {
		return nil, &LifetimeConflictError{Key: *rc.pinnedSingleton, Lifetime: Singleton, DependencyOn: key}
	}

	return rc.resolveDescriptor(key, d, lifetime)
}

func (rc *resolveContext) resolveMulti(trait, name string) ([]any, error) {
	if rc.cancel.Cancelled() {
		return nil, ErrCancelled
	}
	list, ok := rc.provider.registry.Multi[registry.MultiKey{Trait: trait, Name: name}]
	if !ok || len(list) == 0 {
		return []any{}, nil
	}

	results := make([]any, len(list))
	g, _ := errgroup.WithContext(rc.ctx)
	for i, d := range list {
		i, d := i, d
		g.Go(func() error {
			key, _ := d.Key.(Key)
			lifetime := Lifetime(d.Lifetime)
			if lifetime == Scoped && rc.scope == nil {
				return &ScopeRequiredError{Key: key}
			}
			if rc.pinnedSingleton != nil && lifetime == Scoped {
				return &LifetimeConflictError{Key: *rc.pinnedSingleton, Lifetime: Singleton, DependencyOn: key}
			}
			v, err := rc.resolveDescriptor(key, d, lifetime)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveDescriptor dispatches to the cache layer appropriate to lifetime,
// constructing at most once for Singleton and Scoped.
func (rc *resolveContext) resolveDescriptor(key Key, d *registry.Descriptor, lifetime Lifetime) (any, error) {
	build := func() (any, error) { return rc.construct(key, d, lifetime) }

	switch lifetime {
	case Singleton:
		v, cached, err := rc.provider.getOrConstructSingleton(key, build)
		rc.notifyCacheHit(key, lifetime, cached)
		return v, err
	case Scoped:
		v, cached, err := rc.scope.getOrConstructScoped(key, build)
		rc.notifyCacheHit(key, lifetime, cached)
		return v, err
	default: // Transient
		return build()
	}
}

func (rc *resolveContext) notifyCacheHit(key Key, lifetime Lifetime, cached bool) {
	if !cached {
		return
	}
	notifyObservers(rc.provider.observers, rc.provider.cfg.Logger, Event{
		Kind: EventResolved, Key: key, Lifetime: lifetime, CacheHit: true,
	})
}

// construct always runs the underlying constructor exactly once per call
// (callers are responsible for ensuring "once per scope/provider" via
// getOrConstructSingleton/getOrConstructScoped). It builds the child
// resolveContext the constructor and its own nested resolves will see,
// applies decorators, and registers disposal.
func (rc *resolveContext) construct(key Key, d *registry.Descriptor, lifetime Lifetime) (any, error) {
	notifyObservers(rc.provider.observers, rc.provider.cfg.Logger, Event{
		Kind: EventResolving, Key: key, Lifetime: lifetime,
	})

	childPath := make([]Key, len(rc.path)+1)
	copy(childPath, rc.path)
	childPath[len(rc.path)] = key

	pinned := rc.pinnedSingleton
	switch lifetime {
	case Singleton:
		k := key
		pinned = &k
	case Scoped:
		pinned = nil
	}

	child := &resolveContext{
		provider:        rc.provider,
		scope:           rc.scope,
		ctx:             rc.ctx,
		cancel:          rc.cancel,
		path:            childPath,
		pinnedSingleton: pinned,
	}

	start := rc.provider.cfg.Clock.Now()
	ctor, _ := d.Constructor.(func(Resolver) (any, error))
	raw, err := ctor(child)
	if err != nil {
		wrapped := &ConstructionFailedError{Key: key, Source: err}
		notifyObservers(rc.provider.observers, rc.provider.cfg.Logger, Event{
			Kind: EventConstructionFailed, Key: key, Lifetime: lifetime, Err: wrapped,
		})
		return nil, wrapped
	}

	decorated, err := applyDecorators(rc.provider.decorators[key], raw, child, key)
	if err != nil {
		wrapped := &ConstructionFailedError{Key: key, Source: err}
		notifyObservers(rc.provider.observers, rc.provider.cfg.Logger, Event{
			Kind: EventConstructionFailed, Key: key, Lifetime: lifetime, Err: wrapped,
		})
		return nil, wrapped
	}

	rc.registerDisposer(key, decorated, lifetime)

	notifyObservers(rc.provider.observers, rc.provider.cfg.Logger, Event{
		Kind: EventResolved, Key: key, Lifetime: lifetime, Duration: rc.provider.cfg.Clock.Now().Sub(start),
	})

	return decorated, nil
}

func (rc *resolveContext) registerDisposer(key Key, instance any, lifetime Lifetime) {
	disp, ok := disposerFor(key, instance)
	if !ok {
		return
	}
	switch lifetime {
	case Scoped:
		rc.scope.addDisposer(disp)
	case Transient:
		if rc.scope != nil {
			rc.scope.addDisposer(disp)
		} else {
			rc.provider.addDisposer(disp)
		}
	default: // Singleton
		rc.provider.addSingletonDisposer(key, disp)
	}
}
