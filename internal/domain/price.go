package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceSnapshot is one latest-wins rate row per admin update. The ledger only
// reads the newest snapshot; quantity calculations record the rate they used
// (via Transaction.ExecutionQty) rather than recomputing later.
type PriceSnapshot struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Gold24K   decimal.Decimal `gorm:"column:gold24k;type:decimal(18,4);not null" json:"gold24K"`
	Gold22K   decimal.Decimal `gorm:"column:gold22k;type:decimal(18,4);not null" json:"gold22K"`
	Silver    decimal.Decimal `gorm:"column:silver;type:decimal(18,4);not null" json:"silver"`
	UpdatedAt time.Time       `gorm:"column:updated_at;index" json:"updated_at"`
	CreatedAt time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (PriceSnapshot) TableName() string {
	return "price_snapshots"
}

func (p *PriceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Rate returns the snapshot's rate for one metal; ok is false for an unknown
// metal.
func (p *PriceSnapshot) Rate(metal MetalType) (decimal.Decimal, bool) {
	switch metal {
	case MetalGold24K:
		return p.Gold24K, true
	case MetalGold22K:
		return p.Gold22K, true
	case MetalSilver:
		return p.Silver, true
	}
	return decimal.Zero, false
}
