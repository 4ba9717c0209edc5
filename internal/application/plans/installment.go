package plans

import (
	"errors"
	"fmt"
	"time"

	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InstallmentResult reports one applied installment.
type InstallmentResult struct {
	PlanID            uuid.UUID       `json:"plan_id"`
	PlanType          domain.PlanType `json:"plan_type"`
	MonthsPaid        int             `json:"months_paid"`
	TotalMonths       int             `json:"total_months"`
	TotalAmountPaid   decimal.Decimal `json:"total_amount_paid"`
	Completed         bool            `json:"completed"`
	HasDelayedPayment bool            `json:"has_delayed_payment,omitempty"`
}

// ApplyInstallmentIn posts one installment to a plan inside the caller's unit
// of work. Shared by the settlement orchestrator (online channel) and the
// deferred-payment verifier, so both channels mutate plans identically.
//
// The update is guarded on (id, months_paid, status=ACTIVE): concurrent
// postings against the same plan serialize, the loser rolls back with
// ErrConcurrentUpdate.
func ApplyInstallmentIn(tx *gorm.DB, userID uuid.UUID, ref Ref, amount decimal.Decimal, now time.Time) (*InstallmentResult, error) {
	switch ref.Type {
	case domain.PlanTypeFixed:
		return applyFixedInstallment(tx, userID, ref.ID, amount, now)
	case domain.PlanTypeFlexible:
		return applyFlexibleInstallment(tx, userID, ref.ID, amount, now)
	}
	return nil, ErrInvalidPlanType
}

func applyFixedInstallment(tx *gorm.DB, userID, planID uuid.UUID, amount decimal.Decimal, now time.Time) (*InstallmentResult, error) {
	var plan domain.FixedPlan
	if err := tx.Preload("Template").Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrUnauthorized
	}
	if plan.Status != domain.PlanActive {
		return nil, ErrPlanCompleted
	}
	if plan.Template == nil {
		return nil, fmt.Errorf("fixed plan %s has no template", planID)
	}

	totalMonths := plan.Template.TotalMonths
	newMonths := plan.MonthsPaid + 1
	newTotal := plan.TotalAmountPaid.Add(amount)
	completed := newMonths >= totalMonths
	// Sticky: once a payment posts after its due date the flag never resets.
	delayed := plan.HasDelayedPayment ||
		(plan.NextDueDate != nil && now.After(*plan.NextDueDate))

	updates := map[string]interface{}{
		"months_paid":         newMonths,
		"total_amount_paid":   newTotal,
		"has_delayed_payment": delayed,
		"updated_at":          now,
	}
	if completed {
		updates["status"] = domain.PlanCompleted
		updates["next_due_date"] = nil
	} else {
		updates["status"] = domain.PlanActive
		updates["next_due_date"] = now.AddDate(0, 1, 0)
	}

	res := tx.Model(&domain.FixedPlan{}).
		Where("id = ? AND months_paid = ? AND status = ?", planID, plan.MonthsPaid, domain.PlanActive).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}

	// The 11th month of a 12-month plan makes the maturity bonus due; the
	// admin is told in-unit so the notice cannot outlive a rollback.
	if newMonths == 11 && totalMonths == 12 {
		if err := notifyAdminBonusDue(tx, userID, planID, delayed); err != nil {
			return nil, err
		}
	}

	return &InstallmentResult{
		PlanID:            planID,
		PlanType:          domain.PlanTypeFixed,
		MonthsPaid:        newMonths,
		TotalMonths:       totalMonths,
		TotalAmountPaid:   newTotal,
		Completed:         completed,
		HasDelayedPayment: delayed,
	}, nil
}

func applyFlexibleInstallment(tx *gorm.DB, userID, planID uuid.UUID, amount decimal.Decimal, now time.Time) (*InstallmentResult, error) {
	var plan domain.FlexiblePlan
	if err := tx.Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrUnauthorized
	}
	if plan.Status != domain.PlanActive {
		return nil, ErrPlanCompleted
	}

	newMonths := plan.MonthsPaid + 1
	newTotal := plan.TotalAmountPaid.Add(amount)
	completed := newMonths >= plan.TotalMonths

	updates := map[string]interface{}{
		"months_paid":       newMonths,
		"total_amount_paid": newTotal,
		"updated_at":        now,
	}
	if completed {
		updates["status"] = domain.PlanCompleted
		updates["next_due_date"] = nil
	} else {
		updates["status"] = domain.PlanActive
		updates["next_due_date"] = now.AddDate(0, 1, 0)
	}

	res := tx.Model(&domain.FlexiblePlan{}).
		Where("id = ? AND months_paid = ? AND status = ?", planID, plan.MonthsPaid, domain.PlanActive).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}

	return &InstallmentResult{
		PlanID:          planID,
		PlanType:        domain.PlanTypeFlexible,
		MonthsPaid:      newMonths,
		TotalMonths:     plan.TotalMonths,
		TotalAmountPaid: newTotal,
		Completed:       completed,
	}, nil
}

func notifyAdminBonusDue(tx *gorm.DB, userID, planID uuid.UUID, delayed bool) error {
	var admin domain.User
	err := tx.Where("role = ?", domain.RoleAdmin).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	yesNo := "No"
	if delayed {
		yesNo = "Yes"
	}
	return tx.Create(&domain.Notification{
		UserID: admin.ID,
		Title:  "SIP Bonus Payment Due",
		Message: fmt.Sprintf(
			"User %s has completed 11 months of Fixed SIP %s. Please pay the 12th month bonus. User Delayed Payment: %s",
			userID, planID, yesNo),
		Type: domain.NotificationSipBonus,
	}).Error
}
