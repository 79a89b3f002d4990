package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/mathieu-neron/realtube-scoring/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type CacheChecker interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

type WorkerStater interface {
	State() service.WorkerState
}

type HealthHandler struct {
	db      Pinger
	cache   CacheChecker
	worker  WorkerStater
	startAt time.Time
}

func NewHealthHandler(db Pinger, cache CacheChecker, worker WorkerStater) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		worker:  worker,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. Only the database gates readiness; a
// missing cache or a disconnected score worker reports degraded.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	checks := fiber.Map{}
	overallStatus := "healthy"

	dbCheck := checkPing(ctx, h.db)
	checks["database"] = dbCheck
	if dbCheck["status"] != "up" {
		overallStatus = "unhealthy"
	}

	redisCheck := checkCache(ctx, h.cache)
	checks["redis"] = redisCheck
	if redisCheck["status"] == "down" && overallStatus == "healthy" {
		overallStatus = "degraded"
	}

	if h.worker != nil {
		state := h.worker.State()
		checks["score_worker"] = fiber.Map{"status": state.String()}
		if state == service.StateDisconnected && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	resp := fiber.Map{
		"status":         overallStatus,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	}

	status := fiber.StatusOK
	if overallStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(resp)
}

func checkPing(ctx context.Context, p Pinger) fiber.Map {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

func checkCache(ctx context.Context, cache CacheChecker) fiber.Map {
	if cache == nil || !cache.Enabled() {
		return fiber.Map{"status": "disabled"}
	}
	return checkPing(ctx, cache)
}
