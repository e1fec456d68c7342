package keystone

import (
	"reflect"

	"github.com/keystonedi/keystone/internal/registry"
)

// Constructor builds a service instance of type T using whatever the
// Resolver passed to it can provide. Constructors must be safe to call
// concurrently and, ideally, free of side effects beyond building T. A
// Singleton's constructor runs at most once per successful construction,
// even when many goroutines resolve it at the same time; a constructor that
// returns an error is called again on the next resolve.
type Constructor[T any] func(Resolver) (T, error)

// Descriptor is the staged, typed registration record held by a Collection
// before Build freezes it into the storage shape used at runtime.
type Descriptor struct {
	Key              Key
	Lifetime         Lifetime
	Constructor      func(Resolver) (any, error)
	ImplementationID reflect.Type
	Metadata         any
	EagerInstance    any
	HasEagerInstance bool
}

func (d *Descriptor) toStorage() *registry.Descriptor {
	var implID any
	if d.ImplementationID != nil {
		implID = d.ImplementationID
	}
	return &registry.Descriptor{
		Lifetime:         registry.Lifetime(d.Lifetime),
		Constructor:      d.Constructor,
		ImplementationID: implID,
		Metadata:         d.Metadata,
		EagerInstance:    d.EagerInstance,
		HasEagerInstance: d.HasEagerInstance,
		Label:            d.Key.String(),
	}
}

func eraseConstructor[T any](fn Constructor[T]) func(Resolver) (any, error) {
	return func(r Resolver) (any, error) {
		return fn(r)
	}
}
