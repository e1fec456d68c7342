package keystone

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ContextPolicy controls whether a child Scope reads through to its
// ancestors' scope-local values or is sealed off from them.
type ContextPolicy int

const (
	// ScopePropagateContext lets a child see its ancestors' scope-local
	// values when its own map has no entry for a given key. The default.
	ScopePropagateContext ContextPolicy = iota

	// ScopeIsolateContext starts a child with no visibility into any
	// ancestor's scope-local values.
	ScopeIsolateContext
)

// ScopeOption customizes NewScope and NewChild.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	policy ContextPolicy
	label  string
}

// WithIsolatedContext creates a child Scope whose scope-local storage does
// not read through to its parent's.
func WithIsolatedContext() ScopeOption {
	return func(c *scopeConfig) { c.policy = ScopeIsolateContext }
}

// WithLabel attaches a diagnostic name to a Scope, returned by Label.
// Optional; a Scope created without one has an empty label. The label is
// not included in error messages, and scope-local values are addressed by
// Key, not by label.
func WithLabel(label string) ScopeOption {
	return func(c *scopeConfig) { c.label = label }
}

type scopedSlot struct {
	once  sync.Once
	value any
	err   error
}

// Scope is a hierarchical resolution context: one Scoped instance per Key
// per Scope, with disposal run in reverse construction order when the Scope
// itself is closed. A Scope's Scoped cache is never inherited from its
// parent — a child Scope constructs its own instance even for a Key already
// resolved in an ancestor.
type Scope struct {
	provider *Provider
	parent   *Scope
	id       string
	label    string

	ctx    context.Context
	cancel *cancellation
	policy ContextPolicy

	slotsMu sync.Mutex
	slots   map[Key]*scopedSlot

	// scopeLocalMu guards scopeLocal, the explicit-injection store: a Key
	// pre-populated here via SetScopeLocal/SetNamedScopeLocal short-circuits
	// construction entirely, checked ahead of the lifetime-keyed cache probe
	// in resolveContext.resolveOne.
	scopeLocalMu sync.RWMutex
	scopeLocal   map[Key]any

	disposeMu  sync.Mutex
	disposeBag []disposer

	closed bool
	mu     sync.Mutex // guards closed
}

func newScope(provider *Provider, parent *Scope, ctx context.Context, policy ContextPolicy, label string) *Scope {
	var parentCancel *cancellation
	if parent != nil {
		parentCancel = parent.cancel
	} else {
		parentCancel = provider.cancel
	}
	return &Scope{
		provider:   provider,
		parent:     parent,
		id:         uuid.NewString(),
		label:      label,
		ctx:        ctx,
		cancel:     newCancellation(parentCancel),
		policy:     policy,
		slots:      make(map[Key]*scopedSlot),
		scopeLocal: make(map[Key]any),
	}
}

// ID returns this Scope's unique identifier.
func (s *Scope) ID() string { return s.id }

// Label returns the diagnostic name this Scope was created with, or "" if
// none was given.
func (s *Scope) Label() string { return s.label }

// Parent returns the Scope's parent Scope and true, or (nil, false) for a
// root Scope created directly from a Provider.
func (s *Scope) Parent() (*Scope, bool) {
	if s.parent == nil {
		return nil, false
	}
	return s.parent, true
}

// NewChild creates a nested child Scope, optionally labeled via WithLabel.
// By default the child can read its ancestors' scope-local values; pass
// WithIsolatedContext to seal it off.
func (s *Scope) NewChild(ctx context.Context, opts ...ScopeOption) *Scope {
	cfg := scopeConfig{policy: ScopePropagateContext}
	for _, opt := range opts {
		opt(&cfg)
	}
	if ctx == nil {
		ctx = s.ctx
	}
	return newScope(s.provider, s, ctx, cfg.policy, cfg.label)
}

// setScopeLocal pre-populates key with value, so a later resolve of key
// within this Scope (or a propagating descendant) returns value directly
// without ever invoking key's constructor.
func (s *Scope) setScopeLocal(key Key, value any) {
	s.scopeLocalMu.Lock()
	defer s.scopeLocalMu.Unlock()
	s.scopeLocal[key] = value
}

// scopeLocalValue looks up a pre-populated Key, walking up through
// propagating ancestors when this Scope has no entry of its own. An
// isolated Scope never consults its parent.
func (s *Scope) scopeLocalValue(key Key) (any, bool) {
	s.scopeLocalMu.RLock()
	v, ok := s.scopeLocal[key]
	s.scopeLocalMu.RUnlock()
	if ok {
		return v, true
	}
	if s.policy == ScopeIsolateContext || s.parent == nil {
		return nil, false
	}
	return s.parent.scopeLocalValue(key)
}

// SetScopeLocal pre-populates T's Key in s with instance. Any later resolve
// of T through s (or a propagating descendant Scope) returns instance
// directly, without invoking T's registered constructor.
func SetScopeLocal[T any](s *Scope, instance T) {
	s.setScopeLocal(ConcreteKey[T](), instance)
}

// SetNamedScopeLocal is SetScopeLocal disambiguated by name.
func SetNamedScopeLocal[T any](s *Scope, name string, instance T) {
	s.setScopeLocal(NamedConcreteKey[T](name), instance)
}

// ---- Resolver ----

func (s *Scope) Context() context.Context { return s.ctx }

func (s *Scope) CurrentScope() (*Scope, bool) { return s, true }

func (s *Scope) Cancellation() CancellationView { return s.cancel }

func (s *Scope) resolveOne(key Key) (any, error) {
	if s.isClosed() {
		return nil, ErrScopeClosed
	}
	return s.rootContext().resolveOne(key)
}

func (s *Scope) resolveMulti(trait, name string) ([]any, error) {
	if s.isClosed() {
		return nil, ErrScopeClosed
	}
	return s.rootContext().resolveMulti(trait, name)
}

func (s *Scope) rootContext() *resolveContext {
	return &resolveContext{provider: s.provider, scope: s, ctx: s.ctx, cancel: s.cancel}
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ---- scoped cache ----

func (s *Scope) getOrConstructScoped(key Key, build func() (any, error)) (any, bool, error) {
	s.slotsMu.Lock()
	slot, existed := s.slots[key]
	if !existed {
		slot = &scopedSlot{}
		s.slots[key] = slot
	}
	s.slotsMu.Unlock()

	slot.once.Do(func() {
		slot.value, slot.err = build()
	})
	return slot.value, existed, slot.err
}

func (s *Scope) addDisposer(d disposer) {
	s.disposeMu.Lock()
	defer s.disposeMu.Unlock()
	s.disposeBag = append(s.disposeBag, d)
}

// Close cancels the Scope and disposes every cached Scoped (and any
// Scope-owned Transient) instance in reverse construction order. Closing a
// Scope never closes its parent.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel.Cancel()

	s.disposeMu.Lock()
	bag := s.disposeBag
	s.disposeBag = nil
	s.disposeMu.Unlock()

	var errs []error
	for i := len(bag) - 1; i >= 0; i-- {
		if err := bag[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("keystone: disposing %s: %w", bag[i].key, err))
		}
	}
	return errors.Join(errs...)
}
