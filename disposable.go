package keystone

import "context"

// Disposable is implemented by services that need synchronous cleanup when
// their owning Scope or Provider is closed.
//
// Example:
//
//	type Connection struct{ conn *sql.DB }
//
//	func (c *Connection) Close() error { return c.conn.Close() }
type Disposable interface {
	Close() error
}

// AsyncDisposable is implemented by services whose cleanup should respect
// context cancellation. Despite the name, disposal is still invoked
// synchronously from the disposing goroutine — "async" here describes the
// disposer's own internal behavior (it may select on ctx.Done()), not a
// fire-and-forget call. This keeps LIFO ordering exact without needing a
// separate async-runtime capability.
type AsyncDisposable interface {
	Close(ctx context.Context) error
}

// disposer is the type-erased cleanup action appended to a dispose bag.
type disposer struct {
	key Key
	fn  func(ctx context.Context) error
}

func disposerFor(key Key, instance any) (disposer, bool) {
	switch d := instance.(type) {
	case AsyncDisposable:
		return disposer{key: key, fn: d.Close}, true
	case Disposable:
		return disposer{key: key, fn: func(context.Context) error { return d.Close() }}, true
	default:
		return disposer{}, false
	}
}
