package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction channel / kind.
const (
	TxTypeOnline   = "ONLINE"
	TxTypeOffline  = "OFFLINE"
	TxTypeSip      = "SIP"
	TxTypeSipBonus = "SIP_BONUS"
	TxTypeSell     = "SELL"
	TxTypeConvert  = "CONVERT"
)

// Transaction direction.
const (
	CategoryCredit = "CREDIT"
	CategoryDebit  = "DEBIT"
)

// Transaction status. PENDING moves at most once to a terminal value.
const (
	TxPending = "PENDING"
	TxSuccess = "SUCCESS"
	TxFailed  = "FAILED"
)

// Transaction is the append-only record of one money movement. Rows are never
// mutated after reaching a terminal status; the only legal update is
// PENDING -> SUCCESS|FAILED (plus clearing the one-time code).
//
// For the offline channel the row doubles as the frozen intent: ExecutionQty
// carries the quantity locked at intent time, OTP/OTPExpiresAt the
// out-of-band code.
type Transaction struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Amount         decimal.Decimal  `gorm:"column:amount;type:decimal(18,4);not null" json:"amount"`
	Type           string           `gorm:"column:type;type:varchar(12);not null" json:"type"`
	Category       string           `gorm:"column:category;type:varchar(8);not null" json:"category"`
	Status         string           `gorm:"column:status;type:varchar(10);not null;default:'PENDING'" json:"status"`
	UTRNo          string           `gorm:"column:utr_no;uniqueIndex;not null" json:"utr_no"`
	PlanID         *uuid.UUID       `gorm:"column:plan_id;type:uuid" json:"plan_id"`
	PlanType       *PlanType        `gorm:"column:plan_type;type:varchar(10)" json:"plan_type"`
	MetalType      *MetalType       `gorm:"column:metal_type;type:varchar(10)" json:"metal_type"`
	ExecutionQty   *decimal.Decimal `gorm:"column:execution_qty;type:decimal(18,4)" json:"execution_qty"`
	OTP            *string          `gorm:"column:otp;type:varchar(6)" json:"-"`
	OTPExpiresAt   *time.Time       `gorm:"column:otp_expires_at" json:"-"`
	GatewayPayload datatypes.JSON   `gorm:"column:gateway_payload;type:jsonb" json:"gateway_payload,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
