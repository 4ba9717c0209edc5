package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Market override values. OPEN defers to the daily time window; CLOSED shuts
// trading regardless of time.
const (
	MarketOverrideOpen   = "OPEN"
	MarketOverrideClosed = "CLOSED"
)

// MarketStatus is one latest-wins row per admin update. OpenTime/CloseTime
// are HH:MM local time.
type MarketStatus struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Override      string     `gorm:"column:override;type:varchar(8);not null;default:'OPEN'" json:"override"`
	OpenTime      string     `gorm:"column:open_time;type:varchar(5);not null;default:'10:00'" json:"open_time"`
	CloseTime     string     `gorm:"column:close_time;type:varchar(5);not null;default:'18:00'" json:"close_time"`
	LastUpdatedBy *uuid.UUID `gorm:"column:last_updated_by;type:uuid" json:"last_updated_by"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;index" json:"updated_at"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (MarketStatus) TableName() string {
	return "market_statuses"
}

func (m *MarketStatus) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
