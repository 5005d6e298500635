// Package auth carries the caller's credentials through a request context.
package auth

import "context"

// PINHeader is the request header a client sends its PIN in.
const PINHeader = "X-Chore-PIN"

type contextKey struct{}

// Caller is who is asking: the PIN they presented and where they came from.
// The PIN is only checked by the authorization policy.
type Caller struct {
	PIN       string
	RemoteIP  string
	RequestID string
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok
}

// PIN returns the caller's PIN, or "" when none was presented.
func PIN(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return c.PIN
}

func RequestID(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return c.RequestID
}
