package settlement

import (
	"context"
	"testing"
	"time"

	"digigold-backend/internal/application/notifications"
	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupSettlementTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.PlanTemplate{}, &domain.FixedPlan{},
		&domain.FlexiblePlan{}, &domain.Holding{}, &domain.Transaction{},
		&domain.PriceSnapshot{}, &domain.Notification{},
	))
	require.NoError(t, db.Create(&domain.PriceSnapshot{
		Gold24K: decimal.NewFromInt(7000),
		Gold22K: decimal.NewFromInt(6500),
		Silver:  decimal.NewFromInt(80),
	}).Error)
	return &Service{DB: db}, db
}

func seedAdmin(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	admin := domain.User{Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin}
	require.NoError(t, db.Create(&admin).Error)
	return &admin
}

func TestNewIntent_Classification(t *testing.T) {
	amount := decimal.NewFromInt(1000)
	planID := uuid.New()

	// Plan reference wins over metal.
	in, err := NewIntent(amount, &planID, domain.PlanTypeFixed, domain.MetalGold24K, "")
	require.NoError(t, err)
	assert.Equal(t, KindInstallment, in.Kind)
	assert.Equal(t, planID, in.Plan.ID)

	in, err = NewIntent(amount, nil, "", domain.MetalSilver, "")
	require.NoError(t, err)
	assert.Equal(t, KindPurchase, in.Kind)

	in, err = NewIntent(amount, nil, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, KindGeneral, in.Kind)
	assert.Equal(t, domain.CategoryCredit, in.Category)

	_, err = NewIntent(decimal.Zero, nil, "", "", "")
	assert.Error(t, err)
	_, err = NewIntent(amount, &planID, "WEEKLY", "", "")
	assert.ErrorIs(t, err, plans.ErrInvalidPlanType)
	_, err = NewIntent(amount, nil, "", "platinum", "")
	assert.Error(t, err)
	_, err = NewIntent(amount, nil, "", "", "REFUND")
	assert.Error(t, err)
}

func TestSubmitOnline_PurchaseCreditsHoldings(t *testing.T) {
	s, db := setupSettlementTest(t)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(3500), nil, "", domain.MetalGold24K, "")
	require.NoError(t, err)

	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOnline, "UTR-1")
	require.NoError(t, err)
	assert.False(t, result.Pending)
	assert.Equal(t, domain.TxSuccess, result.Transaction.Status)
	assert.Equal(t, domain.CategoryDebit, result.Transaction.Category)
	require.NotNil(t, result.ExecutionQty)
	assert.True(t, result.ExecutionQty.Equal(decimal.RequireFromString("0.5")), result.ExecutionQty.String())

	var h domain.Holding
	require.NoError(t, db.Where("user_id = ?", userID).First(&h).Error)
	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, h.AmountInvested.Equal(decimal.NewFromInt(3500)))
}

func TestSubmitOnline_InstallmentPostsToPlan(t *testing.T) {
	s, db := setupSettlementTest(t)
	userID := uuid.New()
	planSvc := &plans.Service{DB: db}
	plan, err := planSvc.CreateFlexible(context.Background(), userID, domain.MetalGold24K, 12)
	require.NoError(t, err)

	in, err := NewIntent(decimal.NewFromInt(1000), &plan.ID, domain.PlanTypeFlexible, "", "")
	require.NoError(t, err)

	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOnline, "UTR-2")
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeSip, result.Transaction.Type)
	require.NotNil(t, result.Installment)
	assert.Equal(t, 1, result.Installment.MonthsPaid)

	// Installments touch the plan, never the holdings ledger.
	var holdCount int64
	require.NoError(t, db.Model(&domain.Holding{}).Count(&holdCount).Error)
	assert.EqualValues(t, 0, holdCount)
}

func TestSubmitOnline_GeneralRecordsOnly(t *testing.T) {
	s, db := setupSettlementTest(t)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(250), nil, "", "", domain.CategoryDebit)
	require.NoError(t, err)

	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOnline, "UTR-3")
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypeOnline, result.Transaction.Type)
	assert.Equal(t, domain.CategoryDebit, result.Transaction.Category)

	var holdCount int64
	require.NoError(t, db.Model(&domain.Holding{}).Count(&holdCount).Error)
	assert.EqualValues(t, 0, holdCount)
}

func TestSubmit_StoresGatewayPayload(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	userID := uuid.New()
	payload := datatypes.JSON(`{"provider":"razorpay","order_id":"ord_1"}`)

	in, err := NewIntent(decimal.NewFromInt(100), nil, "", "", "")
	require.NoError(t, err)
	in.Payload = payload
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOnline, "UTR-PL")
	require.NoError(t, err)

	var online domain.Transaction
	require.NoError(t, db.First(&online, "id = ?", result.Transaction.ID).Error)
	assert.JSONEq(t, string(payload), string(online.GatewayPayload))

	in, err = NewIntent(decimal.NewFromInt(100), nil, "", domain.MetalSilver, "")
	require.NoError(t, err)
	in.Payload = payload
	result, err = s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	var offline domain.Transaction
	require.NoError(t, db.First(&offline, "id = ?", result.Transaction.ID).Error)
	assert.JSONEq(t, string(payload), string(offline.GatewayPayload))
}

func TestSubmitOnline_InstallmentFailureRollsBackRecord(t *testing.T) {
	s, db := setupSettlementTest(t)
	userID := uuid.New()

	missing := uuid.New()
	in, err := NewIntent(decimal.NewFromInt(1000), &missing, domain.PlanTypeFlexible, "", "")
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), userID, in, domain.TxTypeOnline, "UTR-4")
	assert.ErrorIs(t, err, plans.ErrPlanNotFound)

	var txCount int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&txCount).Error)
	assert.EqualValues(t, 0, txCount)
}

func TestSubmitOffline_FreezesIntentWithoutEffects(t *testing.T) {
	s, db := setupSettlementTest(t)
	admin := seedAdmin(t, db)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(3500), nil, "", domain.MetalGold24K, "")
	require.NoError(t, err)

	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)
	assert.True(t, result.Pending)

	var record domain.Transaction
	require.NoError(t, db.First(&record, "id = ?", result.Transaction.ID).Error)
	assert.Equal(t, domain.TxPending, record.Status)
	assert.Equal(t, domain.TxTypeOffline, record.Type)
	require.NotNil(t, record.OTP)
	assert.Len(t, *record.OTP, 6)
	require.NotNil(t, record.OTPExpiresAt)
	require.NotNil(t, record.ExecutionQty)
	assert.True(t, record.ExecutionQty.Equal(decimal.RequireFromString("0.5")))

	// No ledger movement before confirmation.
	var holdCount int64
	require.NoError(t, db.Model(&domain.Holding{}).Count(&holdCount).Error)
	assert.EqualValues(t, 0, holdCount)

	// Admin got the one-time code.
	var note domain.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", admin.ID, domain.NotificationOTP).First(&note).Error)
	assert.Contains(t, note.Message, *record.OTP)
}

func TestSubmitOffline_GeneralKeepsDirection(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(250), nil, "", "", domain.CategoryDebit)
	require.NoError(t, err)
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	var pending domain.Transaction
	require.NoError(t, db.First(&pending, "id = ?", result.Transaction.ID).Error)
	assert.Equal(t, domain.CategoryDebit, pending.Category)

	confirmed, err := s.ConfirmOffline(context.Background(), pending.ID, *pending.OTP)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryDebit, confirmed.Category)
}

func TestSubmitOffline_SingleOTPNotificationWithSink(t *testing.T) {
	s, db := setupSettlementTest(t)
	s.Notifier = &notifications.Service{DB: db}
	admin := seedAdmin(t, db)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(100), nil, "", domain.MetalSilver, "")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&domain.Notification{}).
		Where("user_id = ? AND type = ?", admin.ID, domain.NotificationOTP).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubmitOffline_NoAdmin(t *testing.T) {
	s, _ := setupSettlementTest(t)
	in, err := NewIntent(decimal.NewFromInt(100), nil, "", domain.MetalSilver, "")
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), uuid.New(), in, domain.TxTypeOffline, "")
	assert.ErrorIs(t, err, ErrNoAdminContact)
}

func TestSubmitOffline_RejectsForeignOrTerminalPlan(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	ownerID := uuid.New()
	planSvc := &plans.Service{DB: db}
	plan, err := planSvc.CreateFlexible(context.Background(), ownerID, domain.MetalGold24K, 12)
	require.NoError(t, err)

	in, err := NewIntent(decimal.NewFromInt(1000), &plan.ID, domain.PlanTypeFlexible, "", "")
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), uuid.New(), in, domain.TxTypeOffline, "")
	assert.ErrorIs(t, err, plans.ErrUnauthorized)

	require.NoError(t, db.Model(&domain.FlexiblePlan{}).
		Where("id = ?", plan.ID).Update("status", domain.PlanCompleted).Error)
	_, err = s.Submit(context.Background(), ownerID, in, domain.TxTypeOffline, "")
	assert.ErrorIs(t, err, plans.ErrPlanCompleted)
}

func TestConfirmOffline_AppliesFrozenQuantity(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(3500), nil, "", domain.MetalGold24K, "")
	require.NoError(t, err)
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	var pending domain.Transaction
	require.NoError(t, db.First(&pending, "id = ?", result.Transaction.ID).Error)

	// Reprice between intent and confirmation; the frozen quantity must win.
	require.NoError(t, db.Create(&domain.PriceSnapshot{
		Gold24K: decimal.NewFromInt(9999),
		Gold22K: decimal.NewFromInt(9000),
		Silver:  decimal.NewFromInt(90),
	}).Error)

	confirmed, err := s.ConfirmOffline(context.Background(), pending.ID, *pending.OTP)
	require.NoError(t, err)
	assert.Equal(t, domain.TxSuccess, confirmed.Status)
	assert.Nil(t, confirmed.OTP)

	var h domain.Holding
	require.NoError(t, db.Where("user_id = ?", userID).First(&h).Error)
	assert.True(t, h.Quantity.Equal(decimal.RequireFromString("0.5")), h.Quantity.String())
	assert.True(t, h.AmountInvested.Equal(decimal.NewFromInt(3500)))
}

func TestConfirmOffline_InstallmentEffects(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	userID := uuid.New()
	planSvc := &plans.Service{DB: db}
	plan, err := planSvc.CreateFlexible(context.Background(), userID, domain.MetalGold24K, 12)
	require.NoError(t, err)

	in, err := NewIntent(decimal.NewFromInt(1000), &plan.ID, domain.PlanTypeFlexible, "", "")
	require.NoError(t, err)
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	// Plan untouched while PENDING.
	var before domain.FlexiblePlan
	require.NoError(t, db.First(&before, "id = ?", plan.ID).Error)
	assert.Equal(t, 0, before.MonthsPaid)

	var pending domain.Transaction
	require.NoError(t, db.First(&pending, "id = ?", result.Transaction.ID).Error)
	_, err = s.ConfirmOffline(context.Background(), pending.ID, *pending.OTP)
	require.NoError(t, err)

	var after domain.FlexiblePlan
	require.NoError(t, db.First(&after, "id = ?", plan.ID).Error)
	assert.Equal(t, 1, after.MonthsPaid)
	assert.True(t, after.TotalAmountPaid.Equal(decimal.NewFromInt(1000)))
}

func TestConfirmOffline_Failures(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(100), nil, "", domain.MetalSilver, "")
	require.NoError(t, err)
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	var pending domain.Transaction
	require.NoError(t, db.First(&pending, "id = ?", result.Transaction.ID).Error)

	_, err = s.ConfirmOffline(context.Background(), uuid.New(), *pending.OTP)
	assert.ErrorIs(t, err, ErrTxNotFound)

	_, err = s.ConfirmOffline(context.Background(), pending.ID, "000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	// Failed attempts leave the row PENDING.
	var still domain.Transaction
	require.NoError(t, db.First(&still, "id = ?", pending.ID).Error)
	assert.Equal(t, domain.TxPending, still.Status)

	// An expired code closes the row out as FAILED.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("id = ?", pending.ID).Update("otp_expires_at", past).Error)
	_, err = s.ConfirmOffline(context.Background(), pending.ID, *pending.OTP)
	assert.ErrorIs(t, err, ErrCodeExpired)

	var failed domain.Transaction
	require.NoError(t, db.First(&failed, "id = ?", pending.ID).Error)
	assert.Equal(t, domain.TxFailed, failed.Status)
	assert.Nil(t, failed.OTP)

	// FAILED is terminal.
	_, err = s.ConfirmOffline(context.Background(), pending.ID, *pending.OTP)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestConfirmOffline_SecondConfirmationIsRejected(t *testing.T) {
	s, db := setupSettlementTest(t)
	seedAdmin(t, db)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(100), nil, "", domain.MetalSilver, "")
	require.NoError(t, err)
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOffline, "")
	require.NoError(t, err)

	var pending domain.Transaction
	require.NoError(t, db.First(&pending, "id = ?", result.Transaction.ID).Error)
	otp := *pending.OTP

	_, err = s.ConfirmOffline(context.Background(), pending.ID, otp)
	require.NoError(t, err)

	_, err = s.ConfirmOffline(context.Background(), pending.ID, otp)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	// Ledger credited exactly once.
	var h domain.Holding
	require.NoError(t, db.Where("user_id = ?", userID).First(&h).Error)
	assert.True(t, h.AmountInvested.Equal(decimal.NewFromInt(100)))
}

func TestConfirmOffline_WrongChannel(t *testing.T) {
	s, _ := setupSettlementTest(t)
	userID := uuid.New()

	in, err := NewIntent(decimal.NewFromInt(100), nil, "", "", "")
	require.NoError(t, err)
	result, err := s.Submit(context.Background(), userID, in, domain.TxTypeOnline, "UTR-ON")
	require.NoError(t, err)

	_, err = s.ConfirmOffline(context.Background(), result.Transaction.ID, "123456")
	assert.ErrorIs(t, err, ErrWrongChannel)
}
