package holdings

import (
	holdsvc "digigold-backend/internal/application/holdings"
	"digigold-backend/internal/middleware"
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Holdings *holdsvc.Service
}

// View GET /api/v1/holdings returns the settled ledger plus both plan flavours.
func (h *Handlers) View(c *fiber.Ctx) error {
	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	portfolio, err := h.Holdings.View(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Holdings fetched", portfolio, nil)
}
