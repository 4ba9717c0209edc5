package holdings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digigold-backend/internal/application/prices"
	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientHoldings means the requested quantity exceeds the held
	// balance.
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	// ErrConcurrentUpdate means another writer changed the row between read
	// and the guarded update; the whole unit rolled back and the caller may
	// retry.
	ErrConcurrentUpdate = errors.New("holding changed concurrently, retry")
)

// QuantityScale is the storage scale for metal quantities (grams).
const QuantityScale = 4

// Service is the holdings ledger: per-(user, metal) running balances.
type Service struct {
	DB *gorm.DB
}

// CreditIn upserts a (user, metal) balance inside the caller's unit of work.
// The increment is a single guarded statement so concurrent credits compose.
func CreditIn(tx *gorm.DB, userID uuid.UUID, metal domain.MetalType, amount, qty decimal.Decimal) error {
	res := tx.Model(&domain.Holding{}).
		Where("user_id = ? AND metal_type = ?", userID, metal).
		Updates(map[string]interface{}{
			"amount_invested": gorm.Expr("amount_invested + ?", amount),
			"quantity":        gorm.Expr("quantity + ?", qty),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&domain.Holding{
		UserID:         userID,
		MetalType:      metal,
		AmountInvested: amount,
		Quantity:       qty,
	}).Error
}

// DebitIn removes qty grams and the proportional share of amount_invested
// from the (user, metal) balance, inside the caller's unit of work. The
// sufficiency check and the decrement are one guarded statement keyed on the
// observed quantity, so two concurrent sells cannot both pass against a
// now-stale balance.
func DebitIn(tx *gorm.DB, userID uuid.UUID, metal domain.MetalType, qty decimal.Decimal) (costBasis decimal.Decimal, err error) {
	var holding domain.Holding
	if err := tx.Where("user_id = ? AND metal_type = ?", userID, metal).First(&holding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrInsufficientHoldings
		}
		return decimal.Zero, err
	}
	if holding.Quantity.LessThan(qty) {
		return decimal.Zero, ErrInsufficientHoldings
	}

	// Average-cost accounting: a partial sale releases a proportional share
	// of the invested amount.
	costBasis = holding.AmountInvested.Mul(qty).Div(holding.Quantity).Round(QuantityScale)

	res := tx.Model(&domain.Holding{}).
		Where("id = ? AND quantity = ?", holding.ID, holding.Quantity).
		Updates(map[string]interface{}{
			"quantity":        gorm.Expr("quantity - ?", qty),
			"amount_invested": gorm.Expr("amount_invested - ?", costBasis),
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrConcurrentUpdate
	}
	return costBasis, nil
}

// SellResult reports one completed sale.
type SellResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	CreditedAmt decimal.Decimal     `json:"credited_amount"`
	Rate        decimal.Decimal     `json:"rate"`
}

// Sell debits qty grams at the current price and records the credit
// transaction, all in one atomic unit.
func (s *Service) Sell(ctx context.Context, userID uuid.UUID, metal domain.MetalType, qty decimal.Decimal, utr string) (*SellResult, error) {
	if !qty.IsPositive() {
		return nil, errors.New("invalid quantity")
	}
	if !metal.Valid() {
		return nil, prices.ErrUnknownMetal
	}
	if utr == "" {
		utr = fmt.Sprintf("SELL-%s-%d", userID, time.Now().UnixMilli())
	}

	var result SellResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rate, err := prices.RateIn(tx, metal)
		if err != nil {
			return err
		}
		creditAmt := rate.Mul(qty)

		if _, err := DebitIn(tx, userID, metal, qty); err != nil {
			return err
		}

		metalCopy := metal
		qtyCopy := qty
		record := domain.Transaction{
			UserID:       userID,
			Amount:       creditAmt,
			Type:         domain.TxTypeSell,
			Category:     domain.CategoryCredit,
			Status:       domain.TxSuccess,
			UTRNo:        utr,
			MetalType:    &metalCopy,
			ExecutionQty: &qtyCopy,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		result = SellResult{Transaction: &record, CreditedAmt: creditAmt, Rate: rate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Portfolio is the holdings view: balances plus both plan lists.
type Portfolio struct {
	Holdings      []domain.Holding      `json:"holdings"`
	FixedPlans    []domain.FixedPlan    `json:"fixed_plans"`
	FlexiblePlans []domain.FlexiblePlan `json:"flexible_plans"`
}

// View returns a user's holdings together with their plans.
func (s *Service) View(ctx context.Context, userID uuid.UUID) (*Portfolio, error) {
	if userID == uuid.Nil {
		return nil, errors.New("user id is required")
	}

	p := Portfolio{}
	db := s.DB.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Find(&p.Holdings).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Template").Where("user_id = ?", userID).Find(&p.FixedPlans).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Find(&p.FlexiblePlans).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
