package settlement

import (
	"context"
	"errors"
	"time"

	"digigold-backend/internal/application/holdings"
	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/application/prices"
	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConfirmOffline completes a deferred intent once the out-of-band one-time
// code is presented. On success it applies exactly the effects frozen at
// intent time (the original amount for an installment, the frozen execution
// quantity for a purchase, never a re-priced one) and flips the row
// PENDING -> SUCCESS, clearing the code.
//
// A wrong code leaves the row PENDING so the user can retry; an expired code
// flips it PENDING -> FAILED since no retry can succeed. A second
// confirmation of a completed row sees ErrAlreadyVerified and mutates
// nothing.
func (s *Service) ConfirmOffline(ctx context.Context, trID uuid.UUID, code string) (*domain.Transaction, error) {
	var record domain.Transaction
	if err := s.DB.WithContext(ctx).Where("id = ?", trID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTxNotFound
		}
		return nil, err
	}

	if record.Type != domain.TxTypeOffline {
		return nil, ErrWrongChannel
	}
	if record.Status != domain.TxPending {
		return nil, ErrAlreadyVerified
	}
	if record.OTP == nil || *record.OTP != code {
		return nil, ErrInvalidCode
	}
	if record.OTPExpiresAt == nil || time.Now().After(*record.OTPExpiresAt) {
		// An expired code can never match again; close the row out so it
		// does not sit PENDING forever.
		if err := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
			Where("id = ? AND status = ?", trID, domain.TxPending).
			Updates(map[string]interface{}{
				"status":         domain.TxFailed,
				"otp":            nil,
				"otp_expires_at": nil,
				"updated_at":     time.Now(),
			}).Error; err != nil {
			return nil, err
		}
		return nil, ErrCodeExpired
	}

	now := time.Now()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case record.PlanID != nil && record.PlanType != nil:
			ref := plans.Ref{ID: *record.PlanID, Type: *record.PlanType}
			if _, err := plans.ApplyInstallmentIn(tx, record.UserID, ref, record.Amount, now); err != nil {
				return err
			}

		case record.MetalType != nil:
			qty := record.ExecutionQty
			if qty == nil {
				// Legacy rows without a frozen quantity: price at
				// confirmation time is the only option left.
				rate, err := prices.RateIn(tx, *record.MetalType)
				if err != nil {
					return err
				}
				q := record.Amount.Div(rate).Round(holdings.QuantityScale)
				qty = &q
			}
			if err := holdings.CreditIn(tx, record.UserID, *record.MetalType, record.Amount, *qty); err != nil {
				return err
			}
		}

		// Guarded flip: a concurrent confirmation loses here and the whole
		// unit, effects included, rolls back.
		res := tx.Model(&domain.Transaction{}).
			Where("id = ? AND status = ?", trID, domain.TxPending).
			Updates(map[string]interface{}{
				"status":         domain.TxSuccess,
				"otp":            nil,
				"otp_expires_at": nil,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyVerified
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	record.Status = domain.TxSuccess
	record.OTP = nil
	record.OTPExpiresAt = nil
	return &record, nil
}

// ConfirmOfflineByString parses the transaction id before confirming.
func (s *Service) ConfirmOfflineByString(ctx context.Context, trID, code string) (*domain.Transaction, error) {
	id, err := uuid.Parse(trID)
	if err != nil {
		return nil, ErrTxNotFound
	}
	return s.ConfirmOffline(ctx, id, code)
}
