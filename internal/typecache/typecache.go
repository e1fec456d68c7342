// Package typecache gives every reflect.Type a process-stable, cached
// display name without re-walking reflection on every diagnostic or error
// path. reflect.Type values are interned by the Go runtime, so the type
// itself already is the collision-free identity token the core spec asks
// for; this package only caches the formatting work on top of it.
package typecache

import (
	"reflect"
	"strings"
	"sync"
)

type info struct {
	formatted string
	once      sync.Once
	t         reflect.Type
}

var cache sync.Map // map[reflect.Type]*info

// FormattedName returns a short, stable, human-readable name for t, suitable
// for error messages and graph export labels. Results are cached per type.
func FormattedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	v, _ := cache.LoadOrStore(t, &info{t: t})
	in := v.(*info)
	in.once.Do(func() {
		in.formatted = format(in.t)
	})
	return in.formatted
}

func format(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Ptr:
		return "*" + format(t.Elem())
	case reflect.Slice:
		return "[]" + format(t.Elem())
	case reflect.Map:
		return "map[" + format(t.Key()) + "]" + format(t.Elem())
	}

	name := t.String()
	// Trim the full package import path down to the last path segment,
	// matching the teacher's diagnostic convention of short, readable names.
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
