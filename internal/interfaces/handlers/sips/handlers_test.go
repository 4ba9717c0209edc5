package sips

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"digigold-backend/internal/application/plans"
	"digigold-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSipsTest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.PlanTemplate{}, &domain.FixedPlan{},
		&domain.FlexiblePlan{}, &domain.Holding{}, &domain.Transaction{},
		&domain.PriceSnapshot{}, &domain.Notification{},
	))
	return &Handlers{Plans: &plans.Service{DB: db}}, db
}

func appWithUser(userID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"role":    domain.RoleCustomer,
		})
		return c.Next()
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestOptFixed_CreatesPlan(t *testing.T) {
	h, db := setupSipsTest(t)
	tpl := domain.PlanTemplate{
		Name: "Gold Saver", MetalType: domain.MetalGold24K,
		TotalMonths: 12, MonthlyAmount: decimal.NewFromInt(1000),
	}
	require.NoError(t, db.Create(&tpl).Error)

	userID := uuid.New()
	app := appWithUser(userID)
	app.Post("/sips/fixed/opt", h.OptFixed)

	resp := postJSON(t, app, "/sips/fixed/opt", map[string]interface{}{"plan_id": tpl.ID.String()})
	assert.Equal(t, 201, resp.StatusCode)

	// Duplicate opt-in conflicts.
	resp = postJSON(t, app, "/sips/fixed/opt", map[string]interface{}{"plan_id": tpl.ID.String()})
	assert.Equal(t, 409, resp.StatusCode)
}

func TestOptFixed_BadPlanID(t *testing.T) {
	h, _ := setupSipsTest(t)
	app := appWithUser(uuid.New())
	app.Post("/sips/fixed/opt", h.OptFixed)

	resp := postJSON(t, app, "/sips/fixed/opt", map[string]interface{}{"plan_id": "not-a-uuid"})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateFlexible_DefaultsAndValidation(t *testing.T) {
	h, _ := setupSipsTest(t)
	app := appWithUser(uuid.New())
	app.Post("/sips/flexible/create", h.CreateFlexible)

	resp := postJSON(t, app, "/sips/flexible/create", map[string]interface{}{"metal_type": "silver"})
	assert.Equal(t, 201, resp.StatusCode)

	var result struct {
		Data domain.FlexiblePlan `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 12, result.Data.TotalMonths)

	resp = postJSON(t, app, "/sips/flexible/create", map[string]interface{}{
		"metal_type": "silver", "total_months": 500,
	})
	assert.Equal(t, 400, resp.StatusCode)
}

func TestConvert_NotMatureIs400(t *testing.T) {
	h, db := setupSipsTest(t)
	userID := uuid.New()
	plan := domain.FlexiblePlan{
		UserID: userID, MetalType: domain.MetalGold24K,
		TotalMonths: 12, Status: domain.PlanActive,
		TotalAmountPaid: decimal.Zero,
	}
	require.NoError(t, db.Create(&plan).Error)

	app := appWithUser(userID)
	app.Post("/sips/:id/convert", h.Convert)

	resp := postJSON(t, app, "/sips/"+plan.ID.String()+"/convert?type=FLEXIBLE", nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestConvert_ForeignPlanIs403(t *testing.T) {
	h, db := setupSipsTest(t)
	plan := domain.FlexiblePlan{
		UserID: uuid.New(), MetalType: domain.MetalGold24K,
		TotalMonths: 12, Status: domain.PlanCompleted,
		TotalAmountPaid: decimal.NewFromInt(1000),
	}
	require.NoError(t, db.Create(&plan).Error)

	app := appWithUser(uuid.New())
	app.Post("/sips/:id/convert", h.Convert)

	resp := postJSON(t, app, "/sips/"+plan.ID.String()+"/convert?type=FLEXIBLE", nil)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestSettle_RepeatIsBenign(t *testing.T) {
	h, db := setupSipsTest(t)
	require.NoError(t, db.Create(&domain.PriceSnapshot{
		Gold24K: decimal.NewFromInt(5000),
		Gold22K: decimal.NewFromInt(4500),
		Silver:  decimal.NewFromInt(100),
	}).Error)
	plan := domain.FlexiblePlan{
		UserID: uuid.New(), MetalType: domain.MetalSilver,
		TotalMonths: 12, MonthsPaid: 12, Status: domain.PlanCompleted,
		TotalAmountPaid: decimal.NewFromInt(1000),
	}
	require.NoError(t, db.Create(&plan).Error)

	app := appWithUser(uuid.New())
	app.Post("/sips/:id/settle", h.Settle)

	resp := postJSON(t, app, "/sips/"+plan.ID.String()+"/settle?type=FLEXIBLE", nil)
	assert.Equal(t, 200, resp.StatusCode)

	resp = postJSON(t, app, "/sips/"+plan.ID.String()+"/settle?type=FLEXIBLE", nil)
	assert.Equal(t, 200, resp.StatusCode)

	var result struct {
		Data struct {
			AlreadySettled bool `json:"already_settled"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Data.AlreadySettled)
}

func TestCreateTemplate_Validation(t *testing.T) {
	h, _ := setupSipsTest(t)
	app := appWithUser(uuid.New())
	app.Post("/sips/plans", h.CreateTemplate)

	resp := postJSON(t, app, "/sips/plans", map[string]interface{}{
		"name": "", "metal_type": "gold24K", "total_months": 12, "monthly_amount": 1000,
	})
	assert.Equal(t, 400, resp.StatusCode)

	resp = postJSON(t, app, "/sips/plans", map[string]interface{}{
		"name": "Gold Saver", "metal_type": "gold24K", "total_months": 12, "monthly_amount": 1000,
	})
	assert.Equal(t, 201, resp.StatusCode)
}
