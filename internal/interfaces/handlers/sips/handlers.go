package sips

import (
	"errors"

	holdsvc "digigold-backend/internal/application/holdings"
	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/application/prices"
	"digigold-backend/internal/domain"
	"digigold-backend/internal/middleware"
	"digigold-backend/internal/pkg/response"
	"digigold-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Plans *plans.Service
}

// OptFixed POST /api/v1/sips/fixed/opt
func (h *Handlers) OptFixed(c *fiber.Ctx) error {
	var body struct {
		PlanID string `json:"plan_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	templateID, err := uuid.Parse(body.PlanID)
	if err != nil {
		return response.Error(c, "Invalid plan_id", fiber.StatusBadRequest, nil)
	}

	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	plan, err := h.Plans.OptInFixed(c.Context(), userID, templateID)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Opted into SIP plan", plan, nil)
}

// CreateFlexible POST /api/v1/sips/flexible/create
func (h *Handlers) CreateFlexible(c *fiber.Ctx) error {
	var body struct {
		MetalType   string `json:"metal_type"`
		TotalMonths int    `json:"total_months"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.TotalMonths != 0 && !validation.IsValidTenure(body.TotalMonths) {
		return response.Error(c, "Invalid total_months", fiber.StatusBadRequest, nil)
	}

	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	plan, err := h.Plans.CreateFlexible(c.Context(), userID, domain.MetalType(body.MetalType), body.TotalMonths)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "Flexible SIP created", plan, nil)
}

// List GET /api/v1/sips
func (h *Handlers) List(c *fiber.Ctx) error {
	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	out, err := h.Plans.ListForUser(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "SIP plans fetched", out, nil)
}

// Convert POST /api/v1/sips/:id/convert
func (h *Handlers) Convert(c *fiber.Ctx) error {
	ref, ok := parseRef(c)
	if !ok {
		return response.Error(c, "Invalid plan reference", fiber.StatusBadRequest, nil)
	}

	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Plans.Convert(c.Context(), userID, ref)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "SIP converted to holdings", result, nil)
}

// Settle POST /api/v1/sips/:id/settle. Admin marks a matured plan as paid out.
func (h *Handlers) Settle(c *fiber.Ctx) error {
	ref, ok := parseRef(c)
	if !ok {
		return response.Error(c, "Invalid plan reference", fiber.StatusBadRequest, nil)
	}

	result, err := h.Plans.Settle(c.Context(), ref)
	if err != nil {
		return mapError(c, err)
	}
	if result.AlreadySettled {
		return response.Success(c, "SIP already settled", result, nil)
	}
	return response.Success(c, "SIP settled", result, nil)
}

// CreateTemplate POST /api/v1/sips/plans (admin)
func (h *Handlers) CreateTemplate(c *fiber.Ctx) error {
	var body struct {
		Name          string          `json:"name"`
		MetalType     string          `json:"metal_type"`
		TotalMonths   int             `json:"total_months"`
		MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if body.Name == "" || !validation.IsValidTenure(body.TotalMonths) || !body.MonthlyAmount.IsPositive() {
		return response.Error(c, "name, total_months and monthly_amount are required", fiber.StatusBadRequest, nil)
	}

	tpl, err := h.Plans.CreateTemplate(c.Context(), body.Name, domain.MetalType(body.MetalType), body.TotalMonths, body.MonthlyAmount)
	if err != nil {
		return mapError(c, err)
	}
	return response.SuccessCreated(c, "SIP plan created", tpl, nil)
}

// ListTemplates GET /api/v1/sips/plans
func (h *Handlers) ListTemplates(c *fiber.Ctx) error {
	tpls, err := h.Plans.ListTemplates(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "SIP plans fetched", tpls, nil)
}

func parseRef(c *fiber.Ctx) (plans.Ref, bool) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return plans.Ref{}, false
	}
	planType := domain.PlanType(c.Query("type", string(domain.PlanTypeFixed)))
	if planType != domain.PlanTypeFixed && planType != domain.PlanTypeFlexible {
		return plans.Ref{}, false
	}
	return plans.Ref{ID: id, Type: planType}, true
}

func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, plans.ErrUnauthorized):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, plans.ErrPlanCompleted),
		errors.Is(err, plans.ErrDuplicatePlan),
		errors.Is(err, plans.ErrConcurrentUpdate),
		errors.Is(err, holdsvc.ErrConcurrentUpdate):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, prices.ErrPriceUnavailable):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	case errors.Is(err, plans.ErrNotMature),
		errors.Is(err, plans.ErrInvalidPlanType),
		errors.Is(err, prices.ErrUnknownMetal):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
