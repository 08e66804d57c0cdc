package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRateLimitRejectsAfterQuota(t *testing.T) {
	app := fiber.New()
	app.Post("/api/review", RateLimit("review", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/review", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/review", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["error"])
}

func TestCorrelationIDPropagatesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/api/health", func(c *fiber.Ctx) error {
		require.Equal(t, GetCorrelationID(c), CorrelationIDFromContext(c.UserContext()))
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(CorrelationHeader))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "abc-123", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get(CorrelationHeader))
}

func TestCorrelationIDReplacesMalformedHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, incoming := range []string{"bad id with spaces", "id;drop", strings.Repeat("a", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(CorrelationHeader, incoming)
		resp, err := app.Test(req)
		require.NoError(t, err)

		got := resp.Header.Get(CorrelationHeader)
		require.NotEqual(t, incoming, got)
		_, err = uuid.Parse(got)
		require.NoError(t, err)
	}
}

func TestContextWithCorrelationIgnoresBlankID(t *testing.T) {
	ctx := ContextWithCorrelation(context.Background(), "  ")
	require.Empty(t, CorrelationIDFromContext(ctx))
	require.Equal(t, "req-1", CorrelationIDFromContext(ContextWithCorrelation(context.Background(), " req-1 ")))
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=50ms", latencyBucket(10*time.Millisecond))
	require.Equal(t, "<=5s", latencyBucket(3*time.Second))
	require.Equal(t, ">15s", latencyBucket(time.Minute))
}
