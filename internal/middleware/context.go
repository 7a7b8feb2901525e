package middleware

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const callerKey contextKey = "caller"

// Caller is the authenticated identity attached to a request by RequireAuth.
type Caller struct {
	ID      primitive.ObjectID
	Email   string
	IsAdmin bool
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom returns the caller stored by RequireAuth, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}
