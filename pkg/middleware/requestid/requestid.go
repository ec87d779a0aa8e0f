// Package requestid correlates a request across access logs, error bodies
// and audit entries.
package requestid

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderKey = "X-Request-ID"
	ginKey    = "request_id"
	maxLength = 128
)

type ctxKey struct{}

// Middleware adopts a well-formed inbound X-Request-ID or mints a UUID, then
// exposes it on the gin context, the request context and the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKey)
		if !wellFormed(id) {
			id = uuid.NewString()
		}

		c.Set(ginKey, id)
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Header(HeaderKey, id)
		c.Next()
	}
}

// Value returns the id the middleware stored on c.
func Value(c *gin.Context) string {
	return c.GetString(ginKey)
}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id carried by ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// wellFormed keeps client ids printable so they are safe to echo into logs.
func wellFormed(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
