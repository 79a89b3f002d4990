package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/users/abcdef123", "/api/users/:userId"},
		{"/api/channels/UCxyz", "/api/channels/:channelId"},
		{"/api/videos", "/api/videos"},
		{"/api/votes", "/api/votes"},
		{"/api/users/", "/api/users/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizePath(tt.path), tt.path)
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/channels/:channelId", sanitizeEndpoint("/api/channels/UC1"))
	assert.Equal(t, "/api/users/:userId", sanitizeEndpoint("/api/users/abc"))
	assert.Equal(t, "/api/votes", sanitizeEndpoint("/api/votes"))
}

func TestHashIPForLog(t *testing.T) {
	h := hashIPForLog("203.0.113.7")
	assert.Len(t, h, 12)
	assert.Equal(t, h, hashIPForLog("203.0.113.7"))
	assert.NotEqual(t, h, hashIPForLog("203.0.113.8"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "realtube-test")

	app := fiber.New()
	app.Use(NewRequestLogger(logger))
	app.Get("/api/users/:userId", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("nope")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/users/deadbeef", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/api/users/:userId", entry["path"])
	assert.Equal(t, "realtube-test", entry["service"])
	assert.Equal(t, float64(404), entry["status"])
	assert.NotContains(t, buf.String(), "deadbeef")
}
