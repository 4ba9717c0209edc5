package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlanStatus is the closed installment-plan state. Legal transitions:
// ACTIVE -> COMPLETED -> CONVERTED or SETTLED. The two terminal states are
// mutually exclusive and final.
type PlanStatus string

const (
	PlanActive    PlanStatus = "ACTIVE"
	PlanCompleted PlanStatus = "COMPLETED"
	PlanConverted PlanStatus = "CONVERTED"
	PlanSettled   PlanStatus = "SETTLED"
)

// Terminal reports whether no further installment may mutate the plan.
func (s PlanStatus) Terminal() bool {
	return s == PlanCompleted || s == PlanConverted || s == PlanSettled
}

// CanTransition reports whether s -> to is a legal transition.
func (s PlanStatus) CanTransition(to PlanStatus) bool {
	switch s {
	case PlanActive:
		return to == PlanCompleted
	case PlanCompleted:
		return to == PlanConverted || to == PlanSettled
	}
	return false
}

// PlanType discriminates the two plan flavours on transaction records.
type PlanType string

const (
	PlanTypeFixed    PlanType = "FIXED"
	PlanTypeFlexible PlanType = "FLEXIBLE"
)

func (p PlanType) Valid() bool {
	return p == PlanTypeFixed || p == PlanTypeFlexible
}

// PlanTemplate is an admin-defined scheme a Fixed plan subscribes to.
type PlanTemplate struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	MetalType     MetalType       `gorm:"column:metal_type;type:varchar(10);not null" json:"metal_type"`
	TotalMonths   int             `gorm:"column:total_months;not null" json:"total_months"`
	MonthlyAmount decimal.Decimal `gorm:"column:monthly_amount;type:decimal(18,4);not null" json:"monthly_amount"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (PlanTemplate) TableName() string {
	return "plan_templates"
}

func (p *PlanTemplate) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FixedPlan is a user's subscription to an admin template. MonthsPaid never
// exceeds the template's tenure; HasDelayedPayment is sticky once set.
type FixedPlan struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	TemplateID        uuid.UUID       `gorm:"column:template_id;type:uuid;not null" json:"template_id"`
	Template          *PlanTemplate   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	MonthsPaid        int             `gorm:"column:months_paid;not null;default:0" json:"months_paid"`
	TotalAmountPaid   decimal.Decimal `gorm:"column:total_amount_paid;type:decimal(18,4);not null;default:0" json:"total_amount_paid"`
	NextDueDate       *time.Time      `gorm:"column:next_due_date" json:"next_due_date"`
	HasDelayedPayment bool            `gorm:"column:has_delayed_payment;not null;default:false" json:"has_delayed_payment"`
	Status            PlanStatus      `gorm:"column:status;type:varchar(10);not null;default:'ACTIVE'" json:"status"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (FixedPlan) TableName() string {
	return "fixed_plans"
}

func (p *FixedPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// FlexiblePlan carries its own metal and tenure instead of referencing a
// template.
type FlexiblePlan struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	MetalType       MetalType       `gorm:"column:metal_type;type:varchar(10);not null" json:"metal_type"`
	TotalMonths     int             `gorm:"column:total_months;not null;default:12" json:"total_months"`
	MonthsPaid      int             `gorm:"column:months_paid;not null;default:0" json:"months_paid"`
	TotalAmountPaid decimal.Decimal `gorm:"column:total_amount_paid;type:decimal(18,4);not null;default:0" json:"total_amount_paid"`
	NextDueDate     *time.Time      `gorm:"column:next_due_date" json:"next_due_date"`
	Status          PlanStatus      `gorm:"column:status;type:varchar(10);not null;default:'ACTIVE'" json:"status"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (FlexiblePlan) TableName() string {
	return "flexible_plans"
}

func (p *FlexiblePlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
