package scheduler

import (
	"context"
	"testing"
	"time"

	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSchedulerTest(t *testing.T) (*Maturity, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.PlanTemplate{}, &domain.FixedPlan{}, &domain.FlexiblePlan{},
		&domain.Transaction{}, &domain.Notification{},
	))
	return &Maturity{Plans: &plans.Service{DB: db}}, db
}

func TestRunOnce_AppliesBonusAndIsIdempotent(t *testing.T) {
	m, db := setupSchedulerTest(t)
	userID := uuid.New()
	due := time.Now().AddDate(0, 0, -1)
	plan := domain.FlexiblePlan{
		UserID:          userID,
		MetalType:       domain.MetalGold24K,
		TotalMonths:     12,
		MonthsPaid:      11,
		TotalAmountPaid: decimal.NewFromInt(11000),
		NextDueDate:     &due,
		Status:          domain.PlanActive,
	}
	require.NoError(t, db.Create(&plan).Error)

	applied := m.RunOnce(context.Background())
	assert.Equal(t, 1, applied)

	var got domain.FlexiblePlan
	require.NoError(t, db.First(&got, "id = ?", plan.ID).Error)
	assert.Equal(t, domain.PlanCompleted, got.Status)
	assert.Equal(t, 12, got.MonthsPaid)
	assert.True(t, got.TotalAmountPaid.Equal(decimal.NewFromInt(12000)), got.TotalAmountPaid.String())

	// Second sweep finds nothing.
	applied = m.RunOnce(context.Background())
	assert.Equal(t, 0, applied)

	var bonusCount int64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("type = ?", domain.TxTypeSipBonus).Count(&bonusCount).Error)
	assert.EqualValues(t, 1, bonusCount)
}

func TestRunOnce_EmptySweep(t *testing.T) {
	m, _ := setupSchedulerTest(t)
	assert.Equal(t, 0, m.RunOnce(context.Background()))
}

func TestStartStop(t *testing.T) {
	m, _ := setupSchedulerTest(t)
	c := m.Start(time.UTC)
	require.NotNil(t, c)
	m.Stop()
}
