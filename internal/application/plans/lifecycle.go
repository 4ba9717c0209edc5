package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digigold-backend/internal/application/holdings"
	"digigold-backend/internal/application/prices"
	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConvertResult reports a COMPLETED -> CONVERTED transition.
type ConvertResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Rate        decimal.Decimal     `json:"rate"`
}

// Convert buys metal with the plan's accumulated amount at the current rate,
// credits the holdings ledger and records the movement, one atomic unit.
// Fails with ErrNotMature unless the plan is COMPLETED, ErrUnauthorized when
// the caller does not own it.
func (s *Service) Convert(ctx context.Context, userID uuid.UUID, ref Ref) (*ConvertResult, error) {
	if !ref.Type.Valid() {
		return nil, ErrInvalidPlanType
	}

	var result ConvertResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := loadPlanState(tx, ref)
		if err != nil {
			return err
		}
		if state.UserID != userID {
			return ErrUnauthorized
		}
		if !state.Status.CanTransition(domain.PlanConverted) {
			return ErrNotMature
		}

		if err := transitionStatus(tx, ref, domain.PlanCompleted, domain.PlanConverted); err != nil {
			return err
		}

		rate, err := prices.RateIn(tx, state.Metal)
		if err != nil {
			return err
		}
		qty := state.TotalAmountPaid.Div(rate).Round(holdings.QuantityScale)

		if err := holdings.CreditIn(tx, userID, state.Metal, state.TotalAmountPaid, qty); err != nil {
			return err
		}

		metal := state.Metal
		planID := ref.ID
		planType := ref.Type
		record := domain.Transaction{
			UserID:       userID,
			Amount:       state.TotalAmountPaid,
			Type:         domain.TxTypeConvert,
			Category:     domain.CategoryDebit,
			Status:       domain.TxSuccess,
			UTRNo:        fmt.Sprintf("CONVERT-%s-%d", ref.ID, time.Now().UnixMilli()),
			PlanID:       &planID,
			PlanType:     &planType,
			MetalType:    &metal,
			ExecutionQty: &qty,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		result = ConvertResult{Transaction: &record, Quantity: qty, Rate: rate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SettleResult reports a COMPLETED -> SETTLED transition. AlreadySettled is
// the benign shape returned on an at-least-once admin retry.
type SettleResult struct {
	AlreadySettled bool            `json:"already_settled"`
	PayoutQty      decimal.Decimal `json:"payout_quantity"`
	Rate           decimal.Decimal `json:"rate"`
}

// Settle marks a mature plan settled and notifies the owner with the payout
// quantity at the current rate. Calling it twice returns AlreadySettled
// rather than an error.
func (s *Service) Settle(ctx context.Context, ref Ref) (*SettleResult, error) {
	if !ref.Type.Valid() {
		return nil, ErrInvalidPlanType
	}

	var result SettleResult
	var ownerID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state, err := loadPlanState(tx, ref)
		if err != nil {
			return err
		}
		if state.Status == domain.PlanSettled {
			result = SettleResult{AlreadySettled: true}
			return nil
		}
		if !state.Status.CanTransition(domain.PlanSettled) {
			return ErrNotMature
		}

		rate, err := prices.RateIn(tx, state.Metal)
		if err != nil {
			return err
		}
		qty := state.TotalAmountPaid.Div(rate).Round(holdings.QuantityScale)

		if err := transitionStatus(tx, ref, domain.PlanCompleted, domain.PlanSettled); err != nil {
			return err
		}

		if err := tx.Create(&domain.Notification{
			UserID: state.UserID,
			Title:  "Plan Settled",
			Message: fmt.Sprintf("Your plan %s has been settled. Payout quantity: %s gm %s.",
				ref.ID, qty, state.Metal),
			Type: domain.NotificationGeneral,
		}).Error; err != nil {
			return err
		}

		ownerID = state.UserID
		result = SettleResult{PayoutQty: qty, Rate: rate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.AlreadySettled {
		// The settlement row was written inside the unit; only the email leg
		// remains.
		s.email(ctx, ownerID, "Plan Settled",
			fmt.Sprintf("Your plan %s has been settled. Payout quantity: %s.", ref.ID, result.PayoutQty))
	}
	return &result, nil
}

// planState is the flavour-independent snapshot the lifecycle transitions
// need.
type planState struct {
	UserID          uuid.UUID
	Metal           domain.MetalType
	TotalMonths     int
	MonthsPaid      int
	TotalAmountPaid decimal.Decimal
	NextDueDate     *time.Time
	Status          domain.PlanStatus
}

func loadPlanState(tx *gorm.DB, ref Ref) (*planState, error) {
	switch ref.Type {
	case domain.PlanTypeFixed:
		var p domain.FixedPlan
		if err := tx.Preload("Template").Where("id = ?", ref.ID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanNotFound
			}
			return nil, err
		}
		if p.Template == nil {
			return nil, fmt.Errorf("fixed plan %s has no template", ref.ID)
		}
		return &planState{
			UserID:          p.UserID,
			Metal:           p.Template.MetalType,
			TotalMonths:     p.Template.TotalMonths,
			MonthsPaid:      p.MonthsPaid,
			TotalAmountPaid: p.TotalAmountPaid,
			NextDueDate:     p.NextDueDate,
			Status:          p.Status,
		}, nil
	case domain.PlanTypeFlexible:
		var p domain.FlexiblePlan
		if err := tx.Where("id = ?", ref.ID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlanNotFound
			}
			return nil, err
		}
		return &planState{
			UserID:          p.UserID,
			Metal:           p.MetalType,
			TotalMonths:     p.TotalMonths,
			MonthsPaid:      p.MonthsPaid,
			TotalAmountPaid: p.TotalAmountPaid,
			NextDueDate:     p.NextDueDate,
			Status:          p.Status,
		}, nil
	}
	return nil, ErrInvalidPlanType
}

// transitionStatus flips a plan from one status to another as a guarded
// statement; losing the race means another writer got there first.
func transitionStatus(tx *gorm.DB, ref Ref, from, to domain.PlanStatus) error {
	model := interface{}(&domain.FixedPlan{})
	if ref.Type == domain.PlanTypeFlexible {
		model = &domain.FlexiblePlan{}
	}
	res := tx.Model(model).
		Where("id = ? AND status = ?", ref.ID, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}
