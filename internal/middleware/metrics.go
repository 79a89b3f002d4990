package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/metrics"
)

// NewMetrics records request duration and in-flight count for Prometheus.
func NewMetrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself
		if c.Path() == "/metrics" {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next(). Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		endpoint := sanitizeEndpoint(strings.Clone(c.Path()))
		method := strings.Clone(c.Method())

		metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())
		metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/channels/"):
		return "/api/channels/:channelId"
	case strings.HasPrefix(path, "/api/users/"):
		return "/api/users/:userId"
	default:
		return path
	}
}
