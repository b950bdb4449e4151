// Package session carries the per-console dependencies that the source
// system kept as process-wide singletons: the authenticated session
// token and the user-facing notifier. Both are injected into the form
// engine and data table so they stay testable in isolation.
package session

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource returns the current bearer token, or "" when the console
// is unauthenticated. The token is read-only from this subsystem's
// perspective; refresh happens elsewhere.
type TokenSource func() string

// Notifier delivers transient user-facing messages. Delivery mechanics
// (toasts, status bars) are outside this package.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Info(string)    {}
func (NopNotifier) Error(string)   {}

// Context is the injected console context.
type Context struct {
	// ID correlates log lines across one console session.
	ID       uuid.UUID
	Token    TokenSource
	Notifier Notifier
	Logger   *zap.Logger
}

// New builds a Context, substituting safe defaults for nil dependencies.
func New(token TokenSource, n Notifier, logger *zap.Logger) *Context {
	if token == nil {
		token = func() string { return "" }
	}
	if n == nil {
		n = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		ID:       uuid.New(),
		Token:    token,
		Notifier: n,
		Logger:   logger,
	}
}

// BearerToken returns the current token.
func (c *Context) BearerToken() string {
	return c.Token()
}
