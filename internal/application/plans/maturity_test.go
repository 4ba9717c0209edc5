package plans

import (
	"context"
	"testing"
	"time"

	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matureFlexiblePlan seeds an ACTIVE 12-month plan at 11 months paid with the
// due date already passed.
func matureFlexiblePlan(t *testing.T, s *Service, userID uuid.UUID, totalPaid int64) *domain.FlexiblePlan {
	t.Helper()
	due := time.Now().AddDate(0, 0, -1)
	plan := domain.FlexiblePlan{
		UserID:          userID,
		MetalType:       domain.MetalGold24K,
		TotalMonths:     12,
		MonthsPaid:      11,
		TotalAmountPaid: decimal.NewFromInt(totalPaid),
		NextDueDate:     &due,
		Status:          domain.PlanActive,
	}
	require.NoError(t, s.DB.Create(&plan).Error)
	return &plan
}

func TestEligibleForMaturity_SelectsOnlyDueTwelveMonthPlans(t *testing.T) {
	s, db := setupPlansTest(t)
	userID := uuid.New()
	now := time.Now()

	mature := matureFlexiblePlan(t, s, userID, 11000)

	// Not yet due.
	future := now.AddDate(0, 0, 5)
	require.NoError(t, db.Create(&domain.FlexiblePlan{
		UserID: userID, MetalType: domain.MetalGold24K, TotalMonths: 12,
		MonthsPaid: 11, TotalAmountPaid: decimal.NewFromInt(11000),
		NextDueDate: &future, Status: domain.PlanActive,
	}).Error)

	// Wrong tenure: a 6-month plan never earns the bonus.
	past := now.AddDate(0, 0, -1)
	require.NoError(t, db.Create(&domain.FlexiblePlan{
		UserID: userID, MetalType: domain.MetalGold24K, TotalMonths: 6,
		MonthsPaid: 5, TotalAmountPaid: decimal.NewFromInt(5000),
		NextDueDate: &past, Status: domain.PlanActive,
	}).Error)

	candidates, err := s.EligibleForMaturity(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, mature.ID, candidates[0].Ref.ID)
	assert.True(t, candidates[0].Bonus.Equal(decimal.NewFromInt(1000)), candidates[0].Bonus.String())
}

func TestApplyMaturityBonus_CompletesPlanOnce(t *testing.T) {
	s, db := setupPlansTest(t)
	userID := uuid.New()
	plan := matureFlexiblePlan(t, s, userID, 11000)

	candidates, err := s.EligibleForMaturity(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	applied, err := s.ApplyMaturityBonus(context.Background(), candidates[0])
	require.NoError(t, err)
	assert.True(t, applied)

	var got domain.FlexiblePlan
	require.NoError(t, db.First(&got, "id = ?", plan.ID).Error)
	assert.Equal(t, domain.PlanCompleted, got.Status)
	assert.Equal(t, 12, got.MonthsPaid)
	assert.True(t, got.TotalAmountPaid.Equal(decimal.NewFromInt(12000)), got.TotalAmountPaid.String())
	assert.Nil(t, got.NextDueDate)

	var bonusTxs []domain.Transaction
	require.NoError(t, db.Where("type = ?", domain.TxTypeSipBonus).Find(&bonusTxs).Error)
	require.Len(t, bonusTxs, 1)
	assert.True(t, bonusTxs[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, domain.CategoryCredit, bonusTxs[0].Category)

	// Re-running against the same candidate is a no-op.
	applied, err = s.ApplyMaturityBonus(context.Background(), candidates[0])
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, db.Where("type = ?", domain.TxTypeSipBonus).Find(&bonusTxs).Error)
	assert.Len(t, bonusTxs, 1)
}

func TestApplyMaturityBonus_FixedPlan(t *testing.T) {
	s, db := setupPlansTest(t)
	ctx := context.Background()
	tpl := newTemplate(t, s, 12)
	userID := uuid.New()
	plan, err := s.OptInFixed(ctx, userID, tpl.ID)
	require.NoError(t, err)

	due := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Model(&domain.FixedPlan{}).Where("id = ?", plan.ID).
		Updates(map[string]interface{}{
			"months_paid":       11,
			"total_amount_paid": decimal.NewFromInt(11000),
			"next_due_date":     due,
		}).Error)

	candidates, err := s.EligibleForMaturity(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, domain.PlanTypeFixed, candidates[0].Ref.Type)

	applied, err := s.ApplyMaturityBonus(ctx, candidates[0])
	require.NoError(t, err)
	assert.True(t, applied)

	var got domain.FixedPlan
	require.NoError(t, db.First(&got, "id = ?", plan.ID).Error)
	assert.Equal(t, domain.PlanCompleted, got.Status)
}
