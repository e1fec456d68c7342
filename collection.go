package keystone

import (
	"fmt"
	"sync"

	"github.com/keystonedi/keystone/internal/graph"
	"github.com/keystonedi/keystone/internal/registry"
)

// Collection is the mutable staging area used before freezing into a
// Provider. Every registration call and Build take the Collection's mutex,
// so calls from several goroutines do not race; the order of concurrent
// registrations is whatever order they acquire the lock in. A Collection
// can be built only once.
type Collection struct {
	mu sync.Mutex

	built bool

	single map[Key]*Descriptor
	multi  map[registry.MultiKey][]*Descriptor
	order  []Key // registration order, across single and multi bindings alike

	decorators map[Key][]decoratorFunc
	observers  []Observer

	// lifetimeConflicts records every single-binding Key that was
	// re-registered with a different Lifetime than its prior registration.
	// addSingle always overwrites the map entry (last write wins), so by
	// Build time the prior Lifetime is gone from c.single; this is the only
	// place that fact is still observable, which is why it is tracked here
	// rather than reconstructed in validateCollection.
	lifetimeConflicts []string
}

// NewCollection creates an empty Collection.
func NewCollection() *Collection {
	return &Collection{
		single:     make(map[Key]*Descriptor),
		multi:      make(map[registry.MultiKey][]*Descriptor),
		decorators: make(map[Key][]decoratorFunc),
	}
}

// Observe registers an Observer. Delivery order to observers always matches
// registration order.
func (c *Collection) Observe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Collection) addDecorator(key Key, fn decoratorFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return ErrAlreadyBuilt
	}
	c.decorators[key] = append(c.decorators[key], fn)
	return nil
}

// addSingle inserts or replaces a single-binding slot. Last write for a
// given Key wins. Replacing a Key with a different Lifetime than its prior
// registration is recorded as a validation conflict (see validateCollection).
func (c *Collection) addSingle(d *Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return ErrAlreadyBuilt
	}
	if existing, exists := c.single[d.Key]; exists {
		if existing.Lifetime != d.Lifetime {
			c.lifetimeConflicts = append(c.lifetimeConflicts, fmt.Sprintf(
				"descriptor for %s re-registered with conflicting lifetime (%s -> %s)",
				d.Key, existing.Lifetime, d.Lifetime))
		}
	} else {
		c.order = append(c.order, d.Key)
	}
	c.single[d.Key] = d
	return nil
}

// tryAddSingle registers d only if its Key is currently absent.
func (c *Collection) tryAddSingle(d *Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return ErrAlreadyBuilt
	}
	if _, exists := c.single[d.Key]; exists {
		return nil
	}
	c.single[d.Key] = d
	c.order = append(c.order, d.Key)
	return nil
}

// appendMulti pushes d to the end of the ordered list for its trait(+name)
// group. No deduplication is performed.
func (c *Collection) appendMulti(trait, name string, d *Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return ErrAlreadyBuilt
	}
	mk := multiGroupKey(trait, name)
	index := len(c.multi[mk])
	d.Key = multiElemKey(trait, name, index)
	c.multi[mk] = append(c.multi[mk], d)
	c.order = append(c.order, d.Key)
	return nil
}

// tryAppendMultiByImpl appends d only if no existing entry in its
// trait(+name) group shares its ImplementationID.
func (c *Collection) tryAppendMultiByImpl(trait, name string, d *Descriptor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return ErrAlreadyBuilt
	}
	mk := multiGroupKey(trait, name)
	for _, existing := range c.multi[mk] {
		if d.ImplementationID != nil && existing.ImplementationID == d.ImplementationID {
			return nil
		}
	}
	index := len(c.multi[mk])
	d.Key = multiElemKey(trait, name, index)
	c.multi[mk] = append(c.multi[mk], d)
	c.order = append(c.order, d.Key)
	return nil
}

// ---- Single-binding generic entry points ----

// AddSingleton registers T with Singleton lifetime.
func AddSingleton[T any](c *Collection, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: Singleton, Constructor: eraseConstructor(ctor)})
}

// AddNamedSingleton registers T, disambiguated by name, with Singleton
// lifetime.
func AddNamedSingleton[T any](c *Collection, name string, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: NamedConcreteKey[T](name), Lifetime: Singleton, Constructor: eraseConstructor(ctor)})
}

// AddScoped registers T with Scoped lifetime.
func AddScoped[T any](c *Collection, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: Scoped, Constructor: eraseConstructor(ctor)})
}

// AddNamedScoped registers T, disambiguated by name, with Scoped lifetime.
func AddNamedScoped[T any](c *Collection, name string, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: NamedConcreteKey[T](name), Lifetime: Scoped, Constructor: eraseConstructor(ctor)})
}

// AddTransient registers T with Transient lifetime.
func AddTransient[T any](c *Collection, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: Transient, Constructor: eraseConstructor(ctor)})
}

// AddNamedTransient registers T, disambiguated by name, with Transient
// lifetime.
func AddNamedTransient[T any](c *Collection, name string, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: NamedConcreteKey[T](name), Lifetime: Transient, Constructor: eraseConstructor(ctor)})
}

// AddEagerSingleton registers a pre-built instance as T's Singleton
// binding. Equivalent to a constructor that returns instance directly.
func AddEagerSingleton[T any](c *Collection, instance T) error {
	return c.addSingle(&Descriptor{
		Key:              ConcreteKey[T](),
		Lifetime:         Singleton,
		Constructor:      func(Resolver) (any, error) { return instance, nil },
		EagerInstance:    instance,
		HasEagerInstance: true,
	})
}

// AddNamedEagerSingleton is AddEagerSingleton disambiguated by name.
func AddNamedEagerSingleton[T any](c *Collection, name string, instance T) error {
	return c.addSingle(&Descriptor{
		Key:              NamedConcreteKey[T](name),
		Lifetime:         Singleton,
		Constructor:      func(Resolver) (any, error) { return instance, nil },
		EagerInstance:    instance,
		HasEagerInstance: true,
	})
}

// Replace is an explicit, self-documenting alias for the single-binding
// Add* functions' already-replacing behavior — useful when a caller wants
// to make clear that overwriting an existing registration is intentional
// rather than accidental.
func Replace[T any](c *Collection, lifetime Lifetime, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: lifetime, Constructor: eraseConstructor(ctor)})
}

// TryAddSingleton registers T with Singleton lifetime only if T is not
// already registered.
func TryAddSingleton[T any](c *Collection, ctor Constructor[T]) error {
	return c.tryAddSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: Singleton, Constructor: eraseConstructor(ctor)})
}

// TryAddScoped registers T with Scoped lifetime only if T is not already
// registered.
func TryAddScoped[T any](c *Collection, ctor Constructor[T]) error {
	return c.tryAddSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: Scoped, Constructor: eraseConstructor(ctor)})
}

// TryAddTransient registers T with Transient lifetime only if T is not
// already registered.
func TryAddTransient[T any](c *Collection, ctor Constructor[T]) error {
	return c.tryAddSingle(&Descriptor{Key: ConcreteKey[T](), Lifetime: Transient, Constructor: eraseConstructor(ctor)})
}

// ---- Trait (polymorphic, single-binding) entry points ----

// AddTrait registers ctor as trait's single binding. Impl identifies the
// concrete implementation type behind the trait and is recorded as the
// descriptor's ImplementationID. TryAppendMultiTraitByImpl compares only
// against multi-binding entries, so it does not consult this registration.
func AddTrait[Impl any, T any](c *Collection, trait string, lifetime Lifetime, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{
		Key: TraitKey(trait), Lifetime: lifetime, Constructor: eraseConstructor(ctor),
		ImplementationID: typeOf[Impl](),
	})
}

// AddNamedTrait is AddTrait disambiguated by name.
func AddNamedTrait[Impl any, T any](c *Collection, trait, name string, lifetime Lifetime, ctor Constructor[T]) error {
	return c.addSingle(&Descriptor{
		Key: NamedTraitKey(trait, name), Lifetime: lifetime, Constructor: eraseConstructor(ctor),
		ImplementationID: typeOf[Impl](),
	})
}

// AppendMultiTrait pushes ctor to the end of trait's ordered multi-binding
// list. No deduplication is performed even if Impl repeats.
func AppendMultiTrait[Impl any, T any](c *Collection, trait string, lifetime Lifetime, ctor Constructor[T]) error {
	return c.appendMulti(trait, "", &Descriptor{
		Lifetime: lifetime, Constructor: eraseConstructor(ctor), ImplementationID: typeOf[Impl](),
	})
}

// AppendNamedMultiTrait is AppendMultiTrait disambiguated by name.
func AppendNamedMultiTrait[Impl any, T any](c *Collection, trait, name string, lifetime Lifetime, ctor Constructor[T]) error {
	return c.appendMulti(trait, name, &Descriptor{
		Lifetime: lifetime, Constructor: eraseConstructor(ctor), ImplementationID: typeOf[Impl](),
	})
}

// TryAppendMultiTraitByImpl appends ctor to trait's ordered multi-binding
// list only if no existing entry shares Impl's type identity.
func TryAppendMultiTraitByImpl[Impl any, T any](c *Collection, trait string, lifetime Lifetime, ctor Constructor[T]) error {
	return c.tryAppendMultiByImpl(trait, "", &Descriptor{
		Lifetime: lifetime, Constructor: eraseConstructor(ctor), ImplementationID: typeOf[Impl](),
	})
}

// Build freezes the Collection into a Provider using the default Config
// with opts applied on top.
func (c *Collection) Build(opts ...BuildOption) (*Provider, error) {
	c.mu.Lock()
	if c.built {
		c.mu.Unlock()
		return nil, ErrAlreadyBuilt
	}
	c.built = true

	single := c.single
	multi := c.multi
	order := c.order
	decorators := c.decorators
	observers := append([]Observer(nil), c.observers...)
	lifetimeConflicts := append([]string(nil), c.lifetimeConflicts...)
	c.mu.Unlock()

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ValidateOnBuild {
		reasons := validateCollection(single, multi)
		reasons = append(reasons, lifetimeConflicts...)
		if len(reasons) > 0 {
			return nil, &ValidationError{Reasons: reasons}
		}
	}

	reg := registry.New[Key]()
	g := graph.New()
	all := make(map[Key]*registry.Descriptor, len(single))

	for key, d := range single {
		stored := d.toStorage()
		stored.Key = key
		reg.Single[key] = stored
		all[key] = stored
		g.AddNode(graph.Node{Label: key.String(), Lifetime: d.Lifetime.String()})
	}

	for mk, list := range multi {
		storageList := make([]*registry.Descriptor, len(list))
		for i, d := range list {
			stored := d.toStorage()
			stored.Key = d.Key
			storageList[i] = stored
			all[d.Key] = stored
			g.AddNode(graph.Node{Label: d.Key.String(), Lifetime: d.Lifetime.String(), Group: mk.Trait})
		}
		reg.Multi[mk] = storageList
	}

	// DisposalOrder must reflect true registration order, not map
	// iteration order; rebuild it from the tracked slice.
	reg.DisposalOrder = append([]Key(nil), order...)

	p := newProvider(reg, all, g, decorators, observers, cfg)

	if cfg.EagerSingletons {
		if err := p.buildEagerSingletons(order); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func validateCollection(single map[Key]*Descriptor, multi map[registry.MultiKey][]*Descriptor) []string {
	var reasons []string
	for key, d := range single {
		if d.Constructor == nil {
			reasons = append(reasons, "descriptor for "+key.String()+" has no constructor")
		}
		if !d.Lifetime.IsValid() {
			reasons = append(reasons, "descriptor for "+key.String()+" has invalid lifetime")
		}
	}
	for mk, list := range multi {
		for _, d := range list {
			if d.Constructor == nil {
				reasons = append(reasons, "multi-binding entry for trait "+mk.Trait+" has no constructor")
			}
		}
	}
	return reasons
}
