package plans

import (
	"context"
	"errors"
	"time"

	"digigold-backend/internal/domain"
	"digigold-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Notifier is the fire-and-forget notification sink. A nil Notifier or a
// notify failure never rolls back a financial effect. Email is the
// delivery-only leg for effects whose notification row is already written
// inside the unit.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message, kind string)
	Email(ctx context.Context, userID uuid.UUID, title, message string)
}

// Service is the installment-plan engine.
type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, message, kind string) {
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, userID, title, message, kind)
	}
}

func (s *Service) email(ctx context.Context, userID uuid.UUID, title, message string) {
	if s.Notifier != nil {
		s.Notifier.Email(ctx, userID, title, message)
	}
}

// Ref identifies one plan of either flavour.
type Ref struct {
	ID   uuid.UUID
	Type domain.PlanType
}

// CreateTemplate adds an admin-defined fixed-plan scheme.
func (s *Service) CreateTemplate(ctx context.Context, name string, metal domain.MetalType, totalMonths int, monthlyAmount decimal.Decimal) (*domain.PlanTemplate, error) {
	if name == "" {
		return nil, errors.New("template name is required")
	}
	if !metal.Valid() {
		return nil, errors.New("invalid metal type")
	}
	if !validation.IsValidTenure(totalMonths) {
		return nil, errors.New("invalid tenure")
	}
	if !validation.IsPositiveAmount(monthlyAmount) {
		return nil, errors.New("monthly amount must be positive")
	}
	tpl := domain.PlanTemplate{
		Name:          name,
		MetalType:     metal,
		TotalMonths:   totalMonths,
		MonthlyAmount: monthlyAmount,
	}
	if err := s.DB.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListTemplates returns all fixed-plan schemes.
func (s *Service) ListTemplates(ctx context.Context) ([]domain.PlanTemplate, error) {
	var tpls []domain.PlanTemplate
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&tpls).Error; err != nil {
		return nil, err
	}
	return tpls, nil
}

// OptInFixed subscribes a user to a template. Rejects a duplicate ACTIVE plan
// against the same template.
func (s *Service) OptInFixed(ctx context.Context, userID, templateID uuid.UUID) (*domain.FixedPlan, error) {
	var plan domain.FixedPlan
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl domain.PlanTemplate
		if err := tx.Where("id = ?", templateID).First(&tpl).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&domain.FixedPlan{}).
			Where("user_id = ? AND template_id = ? AND status = ?", userID, templateID, domain.PlanActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicatePlan
		}

		due := time.Now().AddDate(0, 1, 0)
		plan = domain.FixedPlan{
			UserID:          userID,
			TemplateID:      templateID,
			MonthsPaid:      0,
			TotalAmountPaid: decimal.Zero,
			NextDueDate:     &due,
			Status:          domain.PlanActive,
		}
		return tx.Create(&plan).Error
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// CreateFlexible opens a plan with a user-chosen metal and tenure.
func (s *Service) CreateFlexible(ctx context.Context, userID uuid.UUID, metal domain.MetalType, totalMonths int) (*domain.FlexiblePlan, error) {
	if !metal.Valid() {
		return nil, errors.New("invalid metal type")
	}
	if totalMonths == 0 {
		totalMonths = 12
	}
	if !validation.IsValidTenure(totalMonths) {
		return nil, errors.New("invalid tenure")
	}

	due := time.Now().AddDate(0, 1, 0)
	plan := domain.FlexiblePlan{
		UserID:          userID,
		MetalType:       metal,
		TotalMonths:     totalMonths,
		MonthsPaid:      0,
		TotalAmountPaid: decimal.Zero,
		NextDueDate:     &due,
		Status:          domain.PlanActive,
	}
	if err := s.DB.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// UserPlans bundles both plan flavours for one user.
type UserPlans struct {
	Fixed    []domain.FixedPlan    `json:"fixed"`
	Flexible []domain.FlexiblePlan `json:"flexible"`
}

// ListForUser returns all plans owned by userID.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) (*UserPlans, error) {
	out := UserPlans{}
	db := s.DB.WithContext(ctx)
	if err := db.Preload("Template").Where("user_id = ?", userID).Order("created_at DESC").Find(&out.Fixed).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&out.Flexible).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
