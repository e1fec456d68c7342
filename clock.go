package keystone

import "time"

//go:generate go run go.uber.org/mock/mockgen -source=clock.go -destination=mocks_clock_test.go -package=keystone

// Clock is the narrow capability interface the core consumes for
// timestamping observer events. spec.md §1 lists a clock as an external
// collaborator "assumed available ... but not themselves specified" — this
// is that interface; a concrete implementation is never part of the core.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DefaultClock is the Clock used when a Collection's build options do not
// supply one.
var DefaultClock Clock = realClock{}
