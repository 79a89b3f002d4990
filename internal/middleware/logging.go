package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// NewLogger builds the process logger with structured JSON output. Level is
// parsed from the given string (e.g. "debug", "info", "warn", "error") and
// falls back to info.
func NewLogger(w io.Writer, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	return zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// hashIPForLog produces a short, irreversible hash prefix of the IP address
// for log correlation without storing raw PII.
func hashIPForLog(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])[:12]
}

// sanitizePath replaces dynamic path segments (user IDs, channel IDs) with
// placeholders so PII is never written to logs.
func sanitizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := range parts {
		if i == 0 || parts[i] == "" {
			continue
		}
		switch parts[i-1] {
		case "users":
			parts[i] = ":userId"
		case "channels":
			parts[i] = ":channelId"
		}
	}
	return strings.Join(parts, "/")
}

// NewRequestLogger returns a Fiber middleware that logs each request as
// structured JSON. Raw IPs are hashed; dynamic path segments are sanitized.
func NewRequestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		evt := logger.Info()
		if status >= 500 {
			evt = logger.Error()
		} else if status >= 400 {
			evt = logger.Warn()
		}

		evt.
			Str("method", c.Method()).
			Str("path", sanitizePath(c.Path())).
			Int("status", status).
			Dur("duration_ms", duration).
			Str("ip_hash", hashIPForLog(c.IP())).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}
