package keystone

import (
	"context"
	"reflect"
)

// Resolver is what a Constructor receives to pull its own dependencies.
// Both the root Provider and every Scope satisfy Resolver; which one a
// constructor was handed determines what Scoped lookups can succeed.
//
// The only way to call into a Resolver is through the package-level
// Resolve/ResolveNamed/ResolveTrait/... generic functions — Resolver itself
// carries an unexported dispatch method so external packages cannot
// implement it, keeping the resolution algorithm (resolution.go) the single
// choke point every lookup passes through.
type Resolver interface {
	// Context returns the context.Context this resolution is running
	// under (the Scope's context for a scoped resolve, or the Provider's
	// background context at the root).
	Context() context.Context

	// CurrentScope returns the Scope this Resolver is resolving within, if
	// any. false at the root Provider.
	CurrentScope() (*Scope, bool)

	// Cancellation returns the read-only cancellation view for the current
	// resolution context.
	Cancellation() CancellationView

	resolveOne(key Key) (any, error)
	resolveMulti(trait, name string) ([]any, error)
}

// Resolve returns the sole instance registered for the concrete type T.
func Resolve[T any](r Resolver) (T, error) {
	key := ConcreteKey[T]()
	return downcast[T](key, r.resolveOne(key))
}

// ResolveNamed returns the instance registered for the concrete type T
// under the given name.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	key := NamedConcreteKey[T](name)
	return downcast[T](key, r.resolveOne(key))
}

// ResolveTrait returns the sole instance registered for trait, downcast to
// T (the interface or capability type trait names).
func ResolveTrait[T any](r Resolver, trait string) (T, error) {
	key := TraitKey(trait)
	return downcast[T](key, r.resolveOne(key))
}

// ResolveNamedTrait returns the instance registered for trait under name,
// downcast to T.
func ResolveNamedTrait[T any](r Resolver, trait, name string) (T, error) {
	key := NamedTraitKey(trait, name)
	return downcast[T](key, r.resolveOne(key))
}

// ResolveAllTrait returns every instance registered as part of trait's
// multi-binding, in registration order, each downcast to T.
func ResolveAllTrait[T any](r Resolver, trait string) ([]T, error) {
	return downcastAll[T](TraitKey(trait), r.resolveMulti(trait, ""))
}

// ResolveAllNamedTrait returns every instance registered as part of
// trait+name's multi-binding, in registration order, each downcast to T.
func ResolveAllNamedTrait[T any](r Resolver, trait, name string) ([]T, error) {
	return downcastAll[T](NamedTraitKey(trait, name), r.resolveMulti(trait, name))
}

func downcast[T any](key Key, v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Key: key, Expected: typeOf[T](), Actual: reflect.TypeOf(v)}
	}
	return t, nil
}

func downcastAll[T any](key Key, vs []any, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]T, len(vs))
	for i, v := range vs {
		t, ok := v.(T)
		if !ok {
			return nil, &TypeMismatchError{Key: key, Expected: typeOf[T](), Actual: reflect.TypeOf(v)}
		}
		out[i] = t
	}
	return out, nil
}
