package keystone

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/keystonedi/keystone/internal/typecache"
)

// Sentinel errors for conditions with no useful extra context.
var (
	// ErrAlreadyBuilt is returned by Build when called a second time on the
	// same Collection.
	ErrAlreadyBuilt = errors.New("keystone: collection already built")

	// ErrCancelled is returned when a constructor observes cancellation and
	// fails fast, or when resolution is abandoned mid-construction because
	// the owning scope or provider was cancelled.
	ErrCancelled = errors.New("keystone: resolution cancelled")

	// ErrProviderClosed is returned by Resolve once the owning Provider has
	// been closed.
	ErrProviderClosed = errors.New("keystone: provider closed")

	// ErrScopeClosed is returned by Resolve once the owning Scope has been
	// closed.
	ErrScopeClosed = errors.New("keystone: scope closed")
)

// NotFoundError indicates no descriptor is registered for Key.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("keystone: no service registered for %s", e.Key)
}

// ScopeRequiredError indicates a Scoped descriptor was resolved through the
// root Provider instead of a Scope.
type ScopeRequiredError struct {
	Key Key
}

func (e *ScopeRequiredError) Error() string {
	return fmt.Sprintf("keystone: %s is Scoped and requires an active scope", e.Key)
}

// CircularError indicates the resolution path revisited a Key already
// under construction on the current execution. Path contains every Key
// encountered, in encounter order, ending with the Key that closed the
// cycle.
type CircularError struct {
	Path []Key
}

func (e *CircularError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return fmt.Sprintf("keystone: circular dependency: %s", strings.Join(parts, " -> "))
}

// DepthExceededError indicates the resolution path exceeded the configured
// maximum depth.
type DepthExceededError struct {
	Limit int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("keystone: resolution depth exceeded limit of %d", e.Limit)
}

// ConstructionFailedError wraps an error returned by a user constructor.
type ConstructionFailedError struct {
	Key    Key
	Source error
}

func (e *ConstructionFailedError) Error() string {
	return fmt.Sprintf("keystone: construction of %s failed: %v", e.Key, e.Source)
}

func (e *ConstructionFailedError) Unwrap() error {
	return e.Source
}

// TypeMismatchError indicates a checked downcast failed at the resolution
// boundary. This can only happen if a Descriptor was built by hand in a way
// that violates its own declared type — an internal invariant violation,
// never a condition user code should otherwise trigger.
type TypeMismatchError struct {
	Key      Key
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("keystone: %s: expected %s, got %s", e.Key,
		typecache.FormattedName(e.Expected), typecache.FormattedName(e.Actual))
}

// ValidationError is returned by Build when validate_on_build is enabled
// and one or more validation checks fail.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("keystone: validation failed: %s", strings.Join(e.Reasons, "; "))
}

// LifetimeError indicates an invalid Lifetime value was encountered, for
// example while unmarshalling configuration.
type LifetimeError struct {
	Value any
}

func (e *LifetimeError) Error() string {
	return fmt.Sprintf("keystone: invalid lifetime: %v", e.Value)
}

// LifetimeConflictError indicates a Scoped descriptor was requested (as
// discovered dynamically, during resolution) while a Singleton was under
// construction, either directly or through Transient dependencies of it.
// Key names that Singleton.
type LifetimeConflictError struct {
	Key          Key
	Lifetime     Lifetime
	DependencyOn Key
}

func (e *LifetimeConflictError) Error() string {
	return fmt.Sprintf("keystone: %s (%s) must not depend on scoped %s", e.Key, e.Lifetime, e.DependencyOn)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsScopeRequired reports whether err is (or wraps) a ScopeRequiredError.
func IsScopeRequired(err error) bool {
	var e *ScopeRequiredError
	return errors.As(err, &e)
}

// IsCircular reports whether err is (or wraps) a CircularError.
func IsCircular(err error) bool {
	var e *CircularError
	return errors.As(err, &e)
}

// IsDepthExceeded reports whether err is (or wraps) a DepthExceededError.
func IsDepthExceeded(err error) bool {
	var e *DepthExceededError
	return errors.As(err, &e)
}

// IsConstructionFailed reports whether err is (or wraps) a
// ConstructionFailedError.
func IsConstructionFailed(err error) bool {
	var e *ConstructionFailedError
	return errors.As(err, &e)
}

// IsCancelled reports whether err is, wraps, or is caused by ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
