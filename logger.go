package keystone

import "log"

//go:generate go run go.uber.org/mock/mockgen -source=logger.go -destination=mocks_logger_test.go -package=keystone

// Logger is the narrow capability interface the core consumes to report
// observer failures, which never propagate to the caller of Resolve but are
// not silently dropped either. Disposal errors do not go through Logger:
// Provider.Close and Scope.Close return them joined. Like Clock, this is an external collaborator the spec deliberately
// leaves unspecified (spec.md §1); no concrete logging library is wired into
// the core itself.
type Logger interface {
	Errorf(format string, args ...any)
}

// stdLogger adapts the standard library's log.Logger to Logger. It is the
// default used when a Collection's build options do not supply one, kept
// deliberately minimal since it exists only to make "no logger configured"
// still produce visible output during development.
type stdLogger struct {
	l *log.Logger
}

func (s stdLogger) Errorf(format string, args ...any) {
	s.l.Printf(format, args...)
}

// DefaultLogger is the Logger used when a Collection's build options do
// not supply one.
var DefaultLogger Logger = stdLogger{l: log.Default()}

// noopLogger discards everything. Useful in tests that assert on observer
// or disposer behavior without wanting log noise.
type noopLogger struct{}

func (noopLogger) Errorf(string, ...any) {}

// NoopLogger is a Logger that discards all messages.
var NoopLogger Logger = noopLogger{}
