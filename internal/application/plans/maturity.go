package plans

import (
	"context"
	"fmt"
	"time"

	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maturityTenure is the only tenure that earns a completion bonus.
const maturityTenure = 12

// bonusDivisor: the 12th installment equals the average of the 11 paid ones.
// TODO(product): confirm /11 vs /12, carried over from the existing
// accounting behaviour.
const bonusDivisor = 11

// MaturityCandidate is one plan eligible for the completion bonus.
type MaturityCandidate struct {
	Ref    Ref
	UserID uuid.UUID
	Bonus  decimal.Decimal
}

// EligibleForMaturity selects ACTIVE 12-month plans with 11 months paid and
// the due date passed. The same filter doubles as the idempotency guard: a
// plan already pushed to COMPLETED never matches again.
func (s *Service) EligibleForMaturity(ctx context.Context, now time.Time) ([]MaturityCandidate, error) {
	var out []MaturityCandidate

	var fixed []domain.FixedPlan
	if err := s.DB.WithContext(ctx).Preload("Template").
		Where("status = ? AND months_paid = ? AND next_due_date IS NOT NULL AND next_due_date <= ?",
			domain.PlanActive, maturityTenure-1, now).
		Find(&fixed).Error; err != nil {
		return nil, err
	}
	for _, p := range fixed {
		if p.Template == nil || p.Template.TotalMonths != maturityTenure {
			continue
		}
		out = append(out, MaturityCandidate{
			Ref:    Ref{ID: p.ID, Type: domain.PlanTypeFixed},
			UserID: p.UserID,
			Bonus:  p.TotalAmountPaid.Div(decimal.NewFromInt(bonusDivisor)).Round(4),
		})
	}

	var flexible []domain.FlexiblePlan
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND months_paid = ? AND total_months = ? AND next_due_date IS NOT NULL AND next_due_date <= ?",
			domain.PlanActive, maturityTenure-1, maturityTenure, now).
		Find(&flexible).Error; err != nil {
		return nil, err
	}
	for _, p := range flexible {
		out = append(out, MaturityCandidate{
			Ref:    Ref{ID: p.ID, Type: domain.PlanTypeFlexible},
			UserID: p.UserID,
			Bonus:  p.TotalAmountPaid.Div(decimal.NewFromInt(bonusDivisor)).Round(4),
		})
	}

	return out, nil
}

// ApplyMaturityBonus credits the virtual 12th installment and completes the
// plan in its own atomic unit. Returns false without error when the plan was
// already processed (re-run is a no-op).
func (s *Service) ApplyMaturityBonus(ctx context.Context, c MaturityCandidate) (bool, error) {
	applied := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := interface{}(&domain.FixedPlan{})
		if c.Ref.Type == domain.PlanTypeFlexible {
			model = &domain.FlexiblePlan{}
		}

		res := tx.Model(model).
			Where("id = ? AND months_paid = ? AND status = ?", c.Ref.ID, maturityTenure-1, domain.PlanActive).
			Updates(map[string]interface{}{
				"months_paid":       maturityTenure,
				"total_amount_paid": gorm.Expr("total_amount_paid + ?", c.Bonus),
				"status":            domain.PlanCompleted,
				"next_due_date":     nil,
				"updated_at":        time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already matured by a previous run; leave untouched.
			return nil
		}
		applied = true

		planID := c.Ref.ID
		planType := c.Ref.Type
		return tx.Create(&domain.Transaction{
			UserID:   c.UserID,
			Amount:   c.Bonus,
			Type:     domain.TxTypeSipBonus,
			Category: domain.CategoryCredit,
			Status:   domain.TxSuccess,
			UTRNo:    fmt.Sprintf("BONUS-%s-%d", c.Ref.ID, time.Now().UnixMilli()),
			PlanID:   &planID,
			PlanType: &planType,
		}).Error
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.notify(ctx, c.UserID, "SIP Bonus Credited",
			fmt.Sprintf("A completion bonus of %s has been credited to your plan %s.", c.Bonus, c.Ref.ID),
			domain.NotificationSipBonus)
	}
	return applied, nil
}
