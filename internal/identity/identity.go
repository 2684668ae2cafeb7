// Package identity is the core's view of the external identity provider:
// a caller is either authenticated with an opaque subject id or absent.
package identity

import (
	"context"
	"net/http"
	"strings"
)

// Caller is the authenticated subject of a request.
type Caller struct {
	ID string
}

type callerContextKey struct{}

// WithCaller returns a context carrying the authenticated caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

// FromContext returns the authenticated caller, if any.
func FromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(callerContextKey{}).(Caller)
	if !ok || strings.TrimSpace(c.ID) == "" {
		return Caller{}, false
	}
	return c, true
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
