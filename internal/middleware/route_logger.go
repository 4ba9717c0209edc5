package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const traceIDHeader = "X-Trace-Id"
const traceIDLocal = "trace_id"

// RequestLog assigns each request a trace ID (honouring an inbound
// X-Trace-Id so upstream gateways can correlate) and logs one line per
// request with the outcome: status, duration and the acting user when a
// session is present. Financial endpoints are audited through the
// transaction log; this is the operational view.
func RequestLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(traceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Locals(traceIDLocal, traceID)
		c.Set(traceIDHeader, traceID)

		start := time.Now()
		err := c.Next()

		evt := log.Info().
			Str("trace_id", traceID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Int64("ms", time.Since(start).Milliseconds())
		if actor := Actor(c); actor != nil {
			evt = evt.Str("actor_id", actor.UserID)
		}
		if err != nil {
			evt = evt.Err(err)
		}
		evt.Msg("request")
		return err
	}
}

// TraceID returns the current request's trace ID, empty outside a request.
func TraceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(traceIDLocal).(string); ok {
		return id
	}
	return ""
}
