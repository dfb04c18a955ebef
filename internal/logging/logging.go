// Package logging defines the minimal structured-logging interface used
// across the project, with a log/slog implementation.
package logging

// Logger is a leveled, structured logger. The variadic args are key-value
// pairs, e.g. log.Info("server started", "addr", addr).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that always includes the given key-value
	// pairs.
	With(args ...any) Logger
}
