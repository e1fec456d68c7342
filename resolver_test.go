package keystone

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rtHandle struct{ id int }

type rtCounter struct{ n *int32 }

type rtPlugin interface{ Name() string }

type rtPluginImpl struct{ name string }

func (p *rtPluginImpl) Name() string { return p.name }

func TestResolveSingletonIdentity(t *testing.T) {
	c := NewCollection()
	var nextID int32
	require.NoError(t, AddSingleton(c, func(Resolver) (*rtHandle, error) {
		return &rtHandle{id: int(atomic.AddInt32(&nextID, 1))}, nil
	}))
	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	a, err := Resolve[*rtHandle](p)
	require.NoError(t, err)
	b, err := Resolve[*rtHandle](p)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, int32(1), nextID)
}

func TestResolveSingletonConcurrentAtMostOnce(t *testing.T) {
	c := NewCollection()
	var calls int32
	require.NoError(t, AddSingleton(c, func(Resolver) (*rtHandle, error) {
		atomic.AddInt32(&calls, 1)
		return &rtHandle{}, nil
	}))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	var wg sync.WaitGroup
	results := make([]*rtHandle, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Resolve[*rtHandle](p)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.Equal(t, int32(1), calls)
}

func TestResolveScopedIsolation(t *testing.T) {
	c := NewCollection()
	var n int32
	require.NoError(t, AddScoped(c, func(Resolver) (*rtCounter, error) {
		atomic.AddInt32(&n, 1)
		return &rtCounter{n: &n}, nil
	}))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	s1 := p.NewScope(context.Background())
	defer s1.Close(context.Background())
	s2 := p.NewScope(context.Background())
	defer s2.Close(context.Background())

	a, err := Resolve[*rtCounter](s1)
	require.NoError(t, err)
	again, err := Resolve[*rtCounter](s1)
	require.NoError(t, err)
	b, err := Resolve[*rtCounter](s2)
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)
	assert.Equal(t, int32(2), n)
}

func TestResolveScopedRequiresScope(t *testing.T) {
	c := NewCollection()
	require.NoError(t, AddScoped(c, func(Resolver) (*rtHandle, error) { return &rtHandle{}, nil }))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = Resolve[*rtHandle](p)
	require.Error(t, err)
	assert.True(t, IsScopeRequired(err))
}

func TestResolveTransientFreshness(t *testing.T) {
	c := NewCollection()
	require.NoError(t, AddTransient(c, func(Resolver) (*rtHandle, error) { return &rtHandle{}, nil }))
	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	a, err := Resolve[*rtHandle](p)
	require.NoError(t, err)
	b, err := Resolve[*rtHandle](p)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestResolveAllTraitPreservesRegistrationOrder(t *testing.T) {
	c := NewCollection()
	for i := 1; i <= 16; i++ {
		name := fmt.Sprintf("P%d", i)
		require.NoError(t, AppendMultiTrait[*rtPluginImpl](c, "Plugin", Singleton, func(Resolver) (rtPlugin, error) {
			return &rtPluginImpl{name: name}, nil
		}))
	}
	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	plugins, err := ResolveAllTrait[rtPlugin](p, "Plugin")
	require.NoError(t, err)
	require.Len(t, plugins, 16)
	for i, pl := range plugins {
		assert.Equal(t, fmt.Sprintf("P%d", i+1), pl.Name())
	}
}

type rtA struct{ B *rtB }
type rtB struct{ A *rtA }

func TestResolveDetectsCircularDependency(t *testing.T) {
	c := NewCollection()
	require.NoError(t, AddSingleton(c, func(r Resolver) (*rtA, error) {
		b, err := Resolve[*rtB](r)
		if err != nil {
			return nil, err
		}
		return &rtA{B: b}, nil
	}))
	require.NoError(t, AddSingleton(c, func(r Resolver) (*rtB, error) {
		a, err := Resolve[*rtA](r)
		if err != nil {
			return nil, err
		}
		return &rtB{A: a}, nil
	}))

	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = Resolve[*rtA](p)
	require.Error(t, err)
	assert.True(t, IsCircular(err))
}

type rtDisposable struct {
	key string
	log *[]string
	mu  *sync.Mutex
}

func (d *rtDisposable) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	*d.log = append(*d.log, "d:"+d.key)
	return nil
}

func TestScopeDisposalIsLIFO(t *testing.T) {
	var log []string
	var mu sync.Mutex

	c := NewCollection()
	require.NoError(t, AddNamedScoped(c, "k1", func(Resolver) (*rtDisposable, error) {
		return &rtDisposable{key: "k1", log: &log, mu: &mu}, nil
	}))
	require.NoError(t, AddNamedScoped(c, "k2", func(Resolver) (*rtDisposable, error) {
		return &rtDisposable{key: "k2", log: &log, mu: &mu}, nil
	}))
	require.NoError(t, AddNamedScoped(c, "k3", func(Resolver) (*rtDisposable, error) {
		return &rtDisposable{key: "k3", log: &log, mu: &mu}, nil
	}))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	s := p.NewScope(context.Background())
	_, err = ResolveNamed[*rtDisposable](s, "k1")
	require.NoError(t, err)
	_, err = ResolveNamed[*rtDisposable](s, "k2")
	require.NoError(t, err)
	_, err = ResolveNamed[*rtDisposable](s, "k3")
	require.NoError(t, err)

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, []string{"d:k3", "d:k2", "d:k1"}, log)
}

func TestProviderDisposalIsReverseRegistrationOrderNotConstructionOrder(t *testing.T) {
	var log []string
	var mu sync.Mutex

	c := NewCollection()
	require.NoError(t, AddNamedSingleton(c, "A", func(Resolver) (*rtDisposable, error) {
		return &rtDisposable{key: "A", log: &log, mu: &mu}, nil
	}))
	require.NoError(t, AddNamedSingleton(c, "B", func(Resolver) (*rtDisposable, error) {
		return &rtDisposable{key: "B", log: &log, mu: &mu}, nil
	}))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)

	// Resolve B before A: construction order is [B, A], the reverse of
	// registration order. Disposal must still follow reverse *registration*
	// order ([A, B] registered -> B disposed before A), not reverse
	// construction order (which would dispose A before B).
	_, err = ResolveNamed[*rtDisposable](p, "B")
	require.NoError(t, err)
	_, err = ResolveNamed[*rtDisposable](p, "A")
	require.NoError(t, err)

	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, []string{"d:B", "d:A"}, log)
}

func TestBuildIsIdempotent(t *testing.T) {
	c := NewCollection()
	require.NoError(t, AddSingleton(c, func(Resolver) (*rtHandle, error) { return &rtHandle{}, nil }))
	_, err := c.Build()
	require.NoError(t, err)

	_, err = c.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyBuilt)
}

func TestAddReplacesAppendAppends(t *testing.T) {
	c := NewCollection()
	require.NoError(t, AddSingleton(c, func(Resolver) (*rtHandle, error) { return &rtHandle{id: 1}, nil }))
	require.NoError(t, AddSingleton(c, func(Resolver) (*rtHandle, error) { return &rtHandle{id: 2}, nil }))

	require.NoError(t, AppendMultiTrait[*rtPluginImpl](c, "Plugin", Singleton, func(Resolver) (rtPlugin, error) {
		return &rtPluginImpl{name: "first"}, nil
	}))
	require.NoError(t, AppendMultiTrait[*rtPluginImpl](c, "Plugin", Singleton, func(Resolver) (rtPlugin, error) {
		return &rtPluginImpl{name: "second"}, nil
	}))

	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	v, err := Resolve[*rtHandle](p)
	require.NoError(t, err)
	assert.Equal(t, 2, v.id)

	plugins, err := ResolveAllTrait[rtPlugin](p, "Plugin")
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	assert.Equal(t, "first", plugins[0].Name())
	assert.Equal(t, "second", plugins[1].Name())
}

func TestResolveSingletonString(t *testing.T) {
	type myString string
	c := NewCollection()
	require.NoError(t, AddEagerSingleton[myString](c, "x"))
	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	a, err := Resolve[myString](p)
	require.NoError(t, err)
	b, err := Resolve[myString](p)
	require.NoError(t, err)
	assert.Equal(t, myString("x"), a)
	assert.Equal(t, a, b)
}

func TestResolveScopedCounterAcrossTwoScopes(t *testing.T) {
	var counter int32
	c := NewCollection()
	require.NoError(t, AddScoped(c, func(Resolver) (*rtCounter, error) {
		atomic.AddInt32(&counter, 1)
		return &rtCounter{n: &counter}, nil
	}))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	s1 := p.NewScope(context.Background())
	_, err = Resolve[*rtCounter](s1)
	require.NoError(t, err)
	require.NoError(t, s1.Close(context.Background()))

	s2 := p.NewScope(context.Background())
	_, err = Resolve[*rtCounter](s2)
	require.NoError(t, err)
	require.NoError(t, s2.Close(context.Background()))

	assert.Equal(t, int32(2), counter)
}

func TestResolveTransientFactoryFailsOnThirdCall(t *testing.T) {
	c := NewCollection()
	var calls int
	require.NoError(t, AddTransient(c, func(Resolver) (*rtHandle, error) {
		calls++
		if calls%3 == 0 {
			return nil, fmt.Errorf("factory exhausted")
		}
		return &rtHandle{id: calls}, nil
	}))
	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = Resolve[*rtHandle](p)
	require.NoError(t, err)
	_, err = Resolve[*rtHandle](p)
	require.NoError(t, err)
	_, err = Resolve[*rtHandle](p)
	require.Error(t, err)
	assert.True(t, IsConstructionFailed(err))
}

func TestResolveNotFound(t *testing.T) {
	c := NewCollection()
	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = Resolve[*rtHandle](p)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSingletonCannotDependOnScoped(t *testing.T) {
	c := NewCollection()
	require.NoError(t, AddScoped(c, func(Resolver) (*rtCounter, error) { return &rtCounter{}, nil }))
	require.NoError(t, AddSingleton(c, func(r Resolver) (*rtHandle, error) {
		_, err := Resolve[*rtCounter](r)
		if err != nil {
			return nil, err
		}
		return &rtHandle{}, nil
	}))
	p, err := c.Build(WithEagerSingletons(false))
	require.NoError(t, err)
	defer p.Close(context.Background())

	s := p.NewScope(context.Background())
	defer s.Close(context.Background())

	_, err = Resolve[*rtHandle](s)
	require.Error(t, err)
	var conflict *LifetimeConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestDepthExceeded(t *testing.T) {
	// A chain of distinctly-named Transient bindings of the same concrete
	// type never revisits a Key, so it exercises the depth guard rather
	// than the cycle guard.
	const chainLength = 10
	c := NewCollection()
	for i := 0; i < chainLength; i++ {
		i := i
		require.NoError(t, AddNamedTransient(c, fmt.Sprintf("step%d", i), func(r Resolver) (*rtHandle, error) {
			if i == chainLength-1 {
				return &rtHandle{id: i}, nil
			}
			return ResolveNamed[*rtHandle](r, fmt.Sprintf("step%d", i+1))
		}))
	}
	p, err := c.Build(WithMaxResolutionDepth(4))
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = ResolveNamed[*rtHandle](p, "step0")
	require.Error(t, err)
	assert.True(t, IsDepthExceeded(err))
}
