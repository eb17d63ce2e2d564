package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/persistence"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	pool  *pgxpool.Pool
	redis *persistence.Redis
}

// NewHealthHandler constructs handler.
func NewHealthHandler(pool *pgxpool.Pool, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{pool: pool, redis: redis}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready GET /health/ready. Postgres is required; Redis is a cache and only
// reported, never failed on.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	status := http.StatusOK

	if h.pool != nil {
		if err := h.pool.Ping(c.UserContext()); err != nil {
			checks["postgres"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "up"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(c.UserContext()); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}
	return c.Status(status).JSON(fiber.Map{"checks": checks})
}
