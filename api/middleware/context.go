package middleware

import (
	"context"

	"github.com/angelmondragon/auction-archive/internal/sessions"
)

type contextKey string

const ctxSession contextKey = "review_session"

// SessionFromContext returns the session resolved by SessionAuth, if any.
func SessionFromContext(ctx context.Context) *sessions.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*sessions.Session); ok {
		return v
	}
	return nil
}

// WithSession injects the resolved session into the context.
func WithSession(ctx context.Context, sess *sessions.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
