package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesReviewCollectors(t *testing.T) {
	Reviews().WithLabelValues("logo", "pass", "false").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())
	app.Get("/metrics-again", MetricsHandler())

	for _, path := range []string{"/metrics", "/metrics-again"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `asset_review_reviews_total{asset_type="logo",ghost_mode="false",result="pass"}`)
		require.Contains(t, string(body), "promhttp_metric_handler_requests_total")
	}
}
