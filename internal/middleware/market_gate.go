package middleware

import (
	"time"

	"digigold-backend/internal/application/market"
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RequireOpenMarket rejects money-moving requests while trading is closed.
// A closed market is a 403 with the reason, never a 5xx; plan opt-in and
// deferred-OTP confirmation are routed around this gate.
func RequireOpenMarket(gate *market.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := gate.Status(c.Context(), time.Now())
		if err != nil {
			log.Error().Err(err).Msg("market status check failed")
			return response.Error(c, "Unable to verify market status", fiber.StatusInternalServerError, nil)
		}
		if !decision.Open {
			return response.Forbidden(c, decision.Reason, fiber.Map{
				"trading_hours": decision.TradingHours,
			})
		}
		return c.Next()
	}
}
