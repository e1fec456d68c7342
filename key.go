package keystone

import (
	"fmt"
	"reflect"

	"github.com/keystonedi/keystone/internal/registry"
	"github.com/keystonedi/keystone/internal/typecache"
)

// keyKind discriminates the six Key variants from spec.md §3.
type keyKind int

const (
	kindConcrete keyKind = iota
	kindNamedConcrete
	kindTrait
	kindNamedTrait
	kindMultiTrait
	kindNamedMultiTrait
)

// Key identifies one registration slot. Keys are comparable and usable
// directly as Go map keys: typ is a reflect.Type, which the Go runtime
// interns per concrete type, giving a process-stable, collision-free
// identity for free.
type Key struct {
	kind  keyKind
	typ   reflect.Type
	trait string
	name  string
	index int
}

// ConcreteKey returns the Key identifying the concrete type T.
func ConcreteKey[T any]() Key {
	return Key{kind: kindConcrete, typ: typeOf[T]()}
}

// NamedConcreteKey returns the Key identifying the concrete type T
// disambiguated by name.
func NamedConcreteKey[T any](name string) Key {
	return Key{kind: kindNamedConcrete, typ: typeOf[T](), name: name}
}

// TraitKey returns the Key identifying a polymorphic capability addressed
// by trait.
func TraitKey(trait string) Key {
	return Key{kind: kindTrait, trait: trait}
}

// NamedTraitKey returns the Key identifying a polymorphic capability
// addressed by trait, disambiguated by name.
func NamedTraitKey(trait, name string) Key {
	return Key{kind: kindNamedTrait, trait: trait, name: name}
}

// multiElemKey returns the per-element Key used for cycle-guard and cache
// bookkeeping of one slot within an ordered multi-binding list.
func multiElemKey(trait, name string, index int) Key {
	if name == "" {
		return Key{kind: kindMultiTrait, trait: trait, index: index}
	}
	return Key{kind: kindNamedMultiTrait, trait: trait, name: name, index: index}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// String renders a Key as a short diagnostic label, e.g.
// "Concrete(*app.Logger)" or "NamedTrait(Plugin, name=p1)".
func (k Key) String() string {
	switch k.kind {
	case kindConcrete:
		return fmt.Sprintf("Concrete(%s)", typecache.FormattedName(k.typ))
	case kindNamedConcrete:
		return fmt.Sprintf("NamedConcrete(%s, name=%s)", typecache.FormattedName(k.typ), k.name)
	case kindTrait:
		return fmt.Sprintf("Trait(%s)", k.trait)
	case kindNamedTrait:
		return fmt.Sprintf("NamedTrait(%s, name=%s)", k.trait, k.name)
	case kindMultiTrait:
		return fmt.Sprintf("MultiTrait(%s, index=%d)", k.trait, k.index)
	case kindNamedMultiTrait:
		return fmt.Sprintf("NamedMultiTrait(%s, name=%s, index=%d)", k.trait, k.name, k.index)
	default:
		return "Key(unknown)"
	}
}

// multiKey returns the registry.MultiKey naming this key's trait(+name)
// group. Only meaningful for multi-trait kinds.
func (k Key) multiKey() registry.MultiKey {
	return registry.MultiKey{Trait: k.trait, Name: k.name}
}

func multiGroupKey(trait, name string) registry.MultiKey {
	return registry.MultiKey{Trait: trait, Name: name}
}
