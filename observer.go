package keystone

import "time"

//go:generate go run go.uber.org/mock/mockgen -source=observer.go -destination=mocks_observer_test.go -package=keystone

// EventKind discriminates the four resolution lifecycle events a resolve
// call (or a disposal) can emit.
type EventKind int

const (
	EventResolving EventKind = iota
	EventResolved
	EventConstructionFailed
	EventDisposed
)

func (k EventKind) String() string {
	switch k {
	case EventResolving:
		return "Resolving"
	case EventResolved:
		return "Resolved"
	case EventConstructionFailed:
		return "ConstructionFailed"
	case EventDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// Event is the payload delivered to every registered Observer.
type Event struct {
	Kind     EventKind
	Key      Key
	Lifetime Lifetime
	CacheHit bool
	Duration time.Duration
	Err      error
}

// Observer receives resolution lifecycle events, synchronously, on the
// resolving goroutine, in registration order. An Observer must not block
// indefinitely and must not call back into the Resolver for the Key it was
// just notified about. Observers are not handed the resolving call's
// cycle-guard path, so such a re-entrant call is not detected as circular.
//
// If OnEvent returns an error, that error is routed to the configured
// Logger and never reaches the caller of Resolve — one misbehaving observer
// must not be able to fail an otherwise-successful resolution.
type Observer interface {
	OnEvent(Event) error
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event) error

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) error { return f(e) }

func notifyObservers(observers []Observer, logger Logger, e Event) {
	for _, o := range observers {
		if o == nil {
			continue
		}
		if err := o.OnEvent(e); err != nil {
			logger.Errorf("keystone: observer error for %s: %v", e.Key, err)
		}
	}
}
