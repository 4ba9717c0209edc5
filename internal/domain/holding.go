package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is a user's running balance for one metal: currency invested plus
// quantity owned in grams. One row per (user, metal); created on the first
// purchase, never hard-deleted. Both columns stay >= 0.
type Holding struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_holdings_user_metal" json:"user_id"`
	MetalType      MetalType       `gorm:"column:metal_type;type:varchar(10);not null;uniqueIndex:idx_holdings_user_metal" json:"metal_type"`
	AmountInvested decimal.Decimal `gorm:"column:amount_invested;type:decimal(18,4);not null;default:0" json:"amount_invested"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:decimal(18,4);not null;default:0" json:"quantity"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Holding) TableName() string {
	return "holdings"
}

func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
