package notifications

import (
	"errors"

	notifsvc "digigold-backend/internal/application/notifications"
	"digigold-backend/internal/middleware"
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handlers struct {
	Notifications *notifsvc.Service
}

// List GET /api/v1/notifications
func (h *Handlers) List(c *fiber.Ctx) error {
	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	rows, err := h.Notifications.ListForUser(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Notifications fetched", rows, nil)
}

// MarkRead PATCH /api/v1/notifications/:id/read
func (h *Handlers) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid notification id", fiber.StatusBadRequest, nil)
	}

	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.Notifications.MarkRead(c.Context(), userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Error(c, "Notification not found", fiber.StatusNotFound, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Notification marked as read", nil, nil)
}
