package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// CorrelationHeader carries the request correlation id in and out.
	CorrelationHeader = "X-Correlation-ID"
	// CorrelationLocal is the fiber locals key holding the id.
	CorrelationLocal = "correlation_id"

	maxCorrelationIDLength = 128
)

type correlationIDKey struct{}

// CorrelationID accepts a well-formed X-Correlation-ID from the caller or
// mints a new one, then exposes it through locals, the user context and the
// response header.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := sanitizeCorrelationID(c.Get(CorrelationHeader))
		if !ok {
			id = uuid.NewString()
		}

		c.Locals(CorrelationLocal, id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

// sanitizeCorrelationID rejects ids that are empty, oversized or contain
// characters that would break log lines.
func sanitizeCorrelationID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxCorrelationIDLength {
		return "", false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return "", false
		}
	}
	return id, true
}

// CorrelationIDFromContext returns the id stored by ContextWithCorrelation.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetCorrelationID returns the id bound to the request, or "" outside the middleware.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(CorrelationLocal).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches id to ctx. Blank ids leave ctx untouched.
func ContextWithCorrelation(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}
