package settlement

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"digigold-backend/internal/application/holdings"
	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/application/prices"
	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier is the fire-and-forget notification sink. Email is the
// delivery-only leg for effects whose notification row is already written
// inside the unit.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, kind string)
	Email(ctx context.Context, userID uuid.UUID, title, message string)
}

// Service is the settlement orchestrator: the single entry point that turns a
// payment intent into a consistent update of plan progress, holdings and the
// transaction log.
type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

const (
	otpDigits = 6
	otpTTL    = 15 * time.Minute
)

func (s *Service) email(ctx context.Context, userID uuid.UUID, title, message string) {
	if s.Notifier != nil {
		s.Notifier.Email(ctx, userID, title, message)
	}
}

// SubmitResult reports one accepted intent. For the offline channel only the
// PENDING transaction is populated; all ledger/plan effects wait for
// confirmation.
type SubmitResult struct {
	Transaction  *domain.Transaction      `json:"transaction"`
	Installment  *plans.InstallmentResult `json:"installment,omitempty"`
	ExecutionQty *decimal.Decimal         `json:"execution_qty,omitempty"`
	Pending      bool                     `json:"pending"`
}

// Submit executes an online intent as one atomic unit, or freezes an offline
// intent as a PENDING transaction carrying a one-time code.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, in Intent, channel, utr string) (*SubmitResult, error) {
	if userID == uuid.Nil {
		return nil, plans.ErrUnauthorized
	}
	if channel == domain.TxTypeOffline {
		return s.submitOffline(ctx, userID, in, utr)
	}
	return s.submitOnline(ctx, userID, in, utr)
}

func (s *Service) submitOnline(ctx context.Context, userID uuid.UUID, in Intent, utr string) (*SubmitResult, error) {
	now := time.Now()
	if utr == "" {
		utr = fmt.Sprintf("TX-%d-%s", now.UnixMilli(), userID)
	}

	var result SubmitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := domain.Transaction{
			UserID:         userID,
			Amount:         in.Amount,
			Status:         domain.TxSuccess,
			UTRNo:          utr,
			Category:       domain.CategoryCredit,
			Type:           domain.TxTypeOnline,
			GatewayPayload: in.Payload,
		}

		switch in.Kind {
		case KindInstallment:
			applied, err := plans.ApplyInstallmentIn(tx, userID, *in.Plan, in.Amount, now)
			if err != nil {
				return err
			}
			result.Installment = applied
			record.Type = domain.TxTypeSip
			record.PlanID = &in.Plan.ID
			record.PlanType = &in.Plan.Type

		case KindPurchase:
			rate, err := prices.RateIn(tx, in.Metal)
			if err != nil {
				return err
			}
			qty := in.Amount.Div(rate).Round(holdings.QuantityScale)
			if err := holdings.CreditIn(tx, userID, in.Metal, in.Amount, qty); err != nil {
				return err
			}
			metal := in.Metal
			record.Category = domain.CategoryDebit
			record.MetalType = &metal
			record.ExecutionQty = &qty
			result.ExecutionQty = &qty

		case KindGeneral:
			record.Category = in.Category
		}

		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		result.Transaction = &record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// submitOffline computes and freezes the execution quantity (purchases) at
// the current rate, persists the PENDING transaction with the one-time code,
// and tells the administrator out of band. All ledger/plan effects are
// deferred to confirmation; the frozen quantity substitutes for a held lock.
func (s *Service) submitOffline(ctx context.Context, userID uuid.UUID, in Intent, utr string) (*SubmitResult, error) {
	now := time.Now()
	if utr == "" {
		utr = fmt.Sprintf("OFFLINE-%s-%d", userID, now.UnixMilli())
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, err
	}
	expiry := now.Add(otpTTL)

	var record domain.Transaction
	var adminID uuid.UUID
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin domain.User
		if err := tx.Where("role = ?", domain.RoleAdmin).First(&admin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoAdminContact
			}
			return err
		}
		adminID = admin.ID

		record = domain.Transaction{
			UserID:         userID,
			Amount:         in.Amount,
			Type:           domain.TxTypeOffline,
			Category:       domain.CategoryCredit,
			Status:         domain.TxPending,
			UTRNo:          utr,
			OTP:            &otp,
			OTPExpiresAt:   &expiry,
			GatewayPayload: in.Payload,
		}

		switch in.Kind {
		case KindInstallment:
			// Reject unauthorized or terminal plans at intent time rather
			// than at confirmation.
			state, err := planStateIn(tx, *in.Plan)
			if err != nil {
				return err
			}
			if state.userID != userID {
				return plans.ErrUnauthorized
			}
			if state.status != domain.PlanActive {
				return plans.ErrPlanCompleted
			}
			record.PlanID = &in.Plan.ID
			record.PlanType = &in.Plan.Type

		case KindPurchase:
			rate, err := prices.RateIn(tx, in.Metal)
			if err != nil {
				return err
			}
			qty := in.Amount.Div(rate).Round(holdings.QuantityScale)
			metal := in.Metal
			record.Category = domain.CategoryDebit
			record.MetalType = &metal
			record.ExecutionQty = &qty

		case KindGeneral:
			record.Category = in.Category
		}

		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return tx.Create(&domain.Notification{
			UserID: admin.ID,
			Title:  "Offline Payment OTP Verification",
			Message: fmt.Sprintf("User %s requested offline payment of %s. OTP: %s",
				userID, in.Amount, otp),
			Type: domain.NotificationOTP,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	// The OTP row was written inside the unit; only the email leg remains.
	s.email(ctx, adminID, "Offline Payment OTP Verification",
		fmt.Sprintf("User %s requested offline payment of %s. OTP: %s", userID, in.Amount, otp))

	return &SubmitResult{Transaction: &record, Pending: true}, nil
}

func generateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// offlinePlanState is the minimal plan snapshot the offline channel checks.
type offlinePlanState struct {
	userID uuid.UUID
	status domain.PlanStatus
}

func planStateIn(tx *gorm.DB, ref plans.Ref) (*offlinePlanState, error) {
	switch ref.Type {
	case domain.PlanTypeFixed:
		var p domain.FixedPlan
		if err := tx.Where("id = ?", ref.ID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, plans.ErrPlanNotFound
			}
			return nil, err
		}
		return &offlinePlanState{userID: p.UserID, status: p.Status}, nil
	case domain.PlanTypeFlexible:
		var p domain.FlexiblePlan
		if err := tx.Where("id = ?", ref.ID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, plans.ErrPlanNotFound
			}
			return nil, err
		}
		return &offlinePlanState{userID: p.UserID, status: p.Status}, nil
	}
	return nil, plans.ErrInvalidPlanType
}
