package market

import (
	"strconv"
	"time"

	marketsvc "digigold-backend/internal/application/market"
	"digigold-backend/internal/domain"
	"digigold-backend/internal/middleware"
	"digigold-backend/internal/pkg/response"
	"digigold-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Market *marketsvc.Service
}

// Status GET /api/v1/market-status returns the effective open/closed decision.
func (h *Handlers) Status(c *fiber.Ctx) error {
	decision, err := h.Market.Status(c.Context(), time.Now())
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Market status fetched", decision, nil)
}

// Update PUT /api/v1/admin/market-status appends a row; latest wins.
func (h *Handlers) Update(c *fiber.Ctx) error {
	var body struct {
		Status    string `json:"status"`
		OpenTime  string `json:"open_time"`
		CloseTime string `json:"close_time"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Status != domain.MarketOverrideOpen && body.Status != domain.MarketOverrideClosed {
		return response.Error(c, "status must be OPEN or CLOSED", fiber.StatusBadRequest, nil)
	}
	if body.OpenTime != "" && !validation.IsValidClock(body.OpenTime) {
		return response.Error(c, "open_time must be HH:MM", fiber.StatusBadRequest, nil)
	}
	if body.CloseTime != "" && !validation.IsValidClock(body.CloseTime) {
		return response.Error(c, "close_time must be HH:MM", fiber.StatusBadRequest, nil)
	}

	adminID := middleware.ActorID(c)
	if adminID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	row, err := h.Market.Update(c.Context(), adminID, body.Status, body.OpenTime, body.CloseTime)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Success(c, "Market status updated", row, nil)
}

// History GET /api/v1/admin/market-status/history
func (h *Handlers) History(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	rows, err := h.Market.History(c.Context(), limit)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Market status history fetched", rows, nil)
}
