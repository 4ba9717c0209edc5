package health

import (
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handlers struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// Check GET /api/v1/health reports liveness plus dependency pings.
func (h *Handlers) Check(c *fiber.Ctx) error {
	deps := fiber.Map{"database": "ok", "redis": "ok"}
	healthy := true

	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
		deps["database"] = "unreachable"
		healthy = false
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(c.Context()).Err(); err != nil {
			deps["redis"] = "unreachable"
			healthy = false
		}
	}

	if !healthy {
		return response.Error(c, "Service degraded", fiber.StatusServiceUnavailable, deps)
	}
	return response.Success(c, "OK", deps, nil)
}
