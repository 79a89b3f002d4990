package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// ParseOrigins splits a comma-separated origin list. Empty input or "*"
// allows every origin.
func ParseOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return []string{"*"}
	}

	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// NewCORS allows the browser extension origins to reach the vote and lookup
// routes (e.g. "chrome-extension://xxx,moz-extension://xxx").
func NewCORS(corsOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: ParseOrigins(corsOrigins),
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodDelete,
			fiber.MethodOptions,
		},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       86400,
	})
}
