package keystone

import "fmt"

// decoratorFunc is the type-erased shape stored per Key. Decorators stack
// in registration order: for D1..Dn registered against the same Key, the
// effective instance is Dn(Dn-1(...D1(raw))).
type decoratorFunc func(instance any, r Resolver) (any, error)

// Decorate registers a decorator for the concrete type T. Multiple calls
// stack; the first registered is innermost.
func Decorate[T any](c *Collection, fn func(T, Resolver) (T, error)) error {
	return c.addDecorator(ConcreteKey[T](), eraseDecorator(fn))
}

// DecorateNamed registers a decorator for the named concrete type T.
func DecorateNamed[T any](c *Collection, name string, fn func(T, Resolver) (T, error)) error {
	return c.addDecorator(NamedConcreteKey[T](name), eraseDecorator(fn))
}

// DecorateTrait registers a decorator for trait's single binding.
func DecorateTrait[T any](c *Collection, trait string, fn func(T, Resolver) (T, error)) error {
	return c.addDecorator(TraitKey(trait), eraseDecorator(fn))
}

func eraseDecorator[T any](fn func(T, Resolver) (T, error)) decoratorFunc {
	return func(instance any, r Resolver) (any, error) {
		typed, ok := instance.(T)
		if !ok {
			return nil, fmt.Errorf("keystone: decorator expected %T-compatible instance, got %T", typed, instance)
		}
		return fn(typed, r)
	}
}

func applyDecorators(decorators []decoratorFunc, instance any, r Resolver, key Key) (any, error) {
	current := instance
	for i, d := range decorators {
		next, err := d(current, r)
		if err != nil {
			return nil, fmt.Errorf("keystone: decorator %d for %s failed: %w", i, key, err)
		}
		current = next
	}
	return current, nil
}
