package prices

import (
	"errors"

	pricesvc "digigold-backend/internal/application/prices"
	"digigold-backend/internal/middleware"
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Prices *pricesvc.Service
}

// Latest GET /api/v1/prices/latest
func (h *Handlers) Latest(c *fiber.Ctx) error {
	snap, err := h.Prices.Latest(c.Context())
	if err != nil {
		if errors.Is(err, pricesvc.ErrPriceUnavailable) {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Latest prices fetched", snap, nil)
}

// Add POST /api/v1/admin/prices appends a snapshot; earlier rows stay for
// audit.
func (h *Handlers) Add(c *fiber.Ctx) error {
	var body struct {
		Gold24K decimal.Decimal `json:"gold_price_24k"`
		Gold22K decimal.Decimal `json:"gold_price_22k"`
		Silver  decimal.Decimal `json:"silver_price"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if !body.Gold24K.IsPositive() || !body.Gold22K.IsPositive() || !body.Silver.IsPositive() {
		return response.Error(c, "All prices must be positive", fiber.StatusBadRequest, nil)
	}
	if middleware.ActorID(c) == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	snap, err := h.Prices.Add(c.Context(), body.Gold24K, body.Gold22K, body.Silver)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Prices updated", snap, nil)
}
