package middleware

import (
	"digigold-backend/internal/domain"
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with the standard
// error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// RequireAdmin ensures the session user carries the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := Actor(c)
		if actor == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if actor.Role != domain.RoleAdmin {
			return response.Forbidden(c, "Admin access required", nil)
		}
		return c.Next()
	}
}

// Actor extracts the session user from Locals; nil if not logged in or the
// stored shape is unusable.
func Actor(c *fiber.Ctx) *SessionUser {
	raw, ok := c.Locals(userLocal).(map[string]interface{})
	if !ok {
		return nil
	}
	u := &SessionUser{}
	if v, ok := raw["user_id"].(string); ok {
		u.UserID = v
	}
	if v, ok := raw["username"].(string); ok {
		u.Username = v
	}
	if v, ok := raw["email"].(string); ok {
		u.Email = v
	}
	if v, ok := raw["role"].(string); ok {
		u.Role = v
	}
	if u.UserID == "" {
		return nil
	}
	return u
}

// ActorID parses the session user id as a UUID; uuid.Nil when absent or
// malformed.
func ActorID(c *fiber.Ctx) uuid.UUID {
	actor := Actor(c)
	if actor == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(actor.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
