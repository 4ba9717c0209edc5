package transactions

import (
	"encoding/json"
	"errors"

	holdsvc "digigold-backend/internal/application/holdings"
	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/application/prices"
	setsvc "digigold-backend/internal/application/settlement"
	txsvc "digigold-backend/internal/application/transactions"
	"digigold-backend/internal/domain"
	"digigold-backend/internal/middleware"
	"digigold-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Handlers struct {
	Settlement *setsvc.Service
	Holdings   *holdsvc.Service
	Log        *txsvc.Service
}

// Create POST /api/v1/transactions routes an intent into the settlement
// orchestrator.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		Amount          decimal.Decimal `json:"amount"`
		UTRNo           string          `json:"utr_no"`
		TransactionType string          `json:"transaction_type"`
		Category        string          `json:"category"`
		SipID           string          `json:"sip_id"`
		SipType         string          `json:"sip_type"`
		MetalType       string          `json:"metal_type"`
		GatewayPayload  json.RawMessage `json:"gateway_payload"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if !body.Amount.IsPositive() {
		return response.Error(c, "Invalid amount", fiber.StatusBadRequest, nil)
	}

	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	var planID *uuid.UUID
	if body.SipID != "" {
		id, err := uuid.Parse(body.SipID)
		if err != nil {
			return response.Error(c, "Invalid sip_id", fiber.StatusBadRequest, nil)
		}
		planID = &id
	}

	intent, err := setsvc.NewIntent(body.Amount, planID, domain.PlanType(body.SipType), domain.MetalType(body.MetalType), body.Category)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	intent.Payload = datatypes.JSON(body.GatewayPayload)

	channel := domain.TxTypeOnline
	if body.TransactionType == domain.TxTypeOffline {
		channel = domain.TxTypeOffline
	}

	result, err := h.Settlement.Submit(c.Context(), userID, intent, channel, body.UTRNo)
	if err != nil {
		return mapError(c, err)
	}

	if result.Pending {
		return response.SuccessCreated(c, "Offline payment initiated. Ask Admin for OTP.", fiber.Map{
			"tr_id": result.Transaction.ID,
		}, nil)
	}
	return response.SuccessCreated(c, "Transaction successful", result, nil)
}

// VerifyOffline POST /api/v1/transactions/verify-offline completes a deferred
// payment confirmation; intentionally not behind the market gate.
func (h *Handlers) VerifyOffline(c *fiber.Ctx) error {
	var body struct {
		TrID string `json:"tr_id"`
		OTP  string `json:"otp"`
	}
	if err := c.BodyParser(&body); err != nil || body.TrID == "" || body.OTP == "" {
		return response.Error(c, "tr_id and otp are required", fiber.StatusBadRequest, nil)
	}

	record, err := h.Settlement.ConfirmOfflineByString(c.Context(), body.TrID, body.OTP)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Offline transaction verified successfully", fiber.Map{
		"transaction": record,
	}, nil)
}

// Sell POST /api/v1/transactions/sell
func (h *Handlers) Sell(c *fiber.Ctx) error {
	var body struct {
		MetalType string          `json:"metal_type"`
		Quantity  decimal.Decimal `json:"quantity"`
		UTRNo     string          `json:"utr_no"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if !body.Quantity.IsPositive() {
		return response.Error(c, "Invalid quantity", fiber.StatusBadRequest, nil)
	}

	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	result, err := h.Holdings.Sell(c.Context(), userID, domain.MetalType(body.MetalType), body.Quantity, body.UTRNo)
	if err != nil {
		return mapError(c, err)
	}
	return response.Success(c, "Sell successful", result, nil)
}

// List GET /api/v1/transactions
func (h *Handlers) List(c *fiber.Ctx) error {
	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txs, err := h.Log.ListForUser(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Transactions fetched", txs, nil)
}

// ListSip GET /api/v1/transactions/sip
func (h *Handlers) ListSip(c *fiber.Ctx) error {
	userID := middleware.ActorID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	txs, err := h.Log.ListPlanPayments(c.Context(), userID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "SIP transactions fetched", txs, nil)
}

// mapError translates service sentinels into the standard error envelope:
// validation 400, ownership 403, missing 404, state conflicts 409, missing
// price snapshot 503 (retryable).
func mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, plans.ErrPlanNotFound), errors.Is(err, setsvc.ErrTxNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, plans.ErrUnauthorized):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, plans.ErrPlanCompleted),
		errors.Is(err, plans.ErrConcurrentUpdate),
		errors.Is(err, holdsvc.ErrConcurrentUpdate):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, prices.ErrPriceUnavailable):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	case errors.Is(err, holdsvc.ErrInsufficientHoldings),
		errors.Is(err, prices.ErrUnknownMetal),
		errors.Is(err, plans.ErrInvalidPlanType),
		errors.Is(err, setsvc.ErrWrongChannel),
		errors.Is(err, setsvc.ErrAlreadyVerified),
		errors.Is(err, setsvc.ErrInvalidCode),
		errors.Is(err, setsvc.ErrCodeExpired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
