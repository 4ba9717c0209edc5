package market

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"digigold-backend/internal/domain"
	"digigold-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decision is the gate's answer for one instant: open or closed with a
// human-readable reason.
type Decision struct {
	Open         bool   `json:"open"`
	Reason       string `json:"reason,omitempty"`
	TradingHours string `json:"trading_hours"`
}

// Service combines the admin override with the fixed daily window.
type Service struct {
	DB       *gorm.DB
	Location *time.Location

	// Defaults used when no admin row exists yet.
	DefaultOpen  string
	DefaultClose string
}

func (s *Service) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func (s *Service) defaults() (string, string) {
	open, close := s.DefaultOpen, s.DefaultClose
	if open == "" {
		open = "10:00"
	}
	if close == "" {
		close = "18:00"
	}
	return open, close
}

// current returns the latest admin row, or nil when none exists.
func (s *Service) current(ctx context.Context) (*domain.MarketStatus, error) {
	var ms domain.MarketStatus
	err := s.DB.WithContext(ctx).Order("updated_at DESC").First(&ms).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ms, nil
}

// Status answers "is trading permitted at now". Override CLOSED wins over the
// window; otherwise the window is inclusive of the open boundary and
// exclusive of the close boundary.
func (s *Service) Status(ctx context.Context, now time.Time) (Decision, error) {
	ms, err := s.current(ctx)
	if err != nil {
		return Decision{}, err
	}

	openStr, closeStr := s.defaults()
	override := domain.MarketOverrideOpen
	if ms != nil {
		override = ms.Override
		if ms.OpenTime != "" {
			openStr = ms.OpenTime
		}
		if ms.CloseTime != "" {
			closeStr = ms.CloseTime
		}
	}
	hours := fmt.Sprintf("%s to %s", openStr, closeStr)

	if override == domain.MarketOverrideClosed {
		return Decision{
			Open:         false,
			Reason:       "Market is currently closed by admin",
			TradingHours: hours,
		}, nil
	}

	local := now.In(s.loc())
	minutes := local.Hour()*60 + local.Minute()
	openMin := clockMinutes(openStr)
	closeMin := clockMinutes(closeStr)

	if minutes < openMin {
		return Decision{
			Open:         false,
			Reason:       fmt.Sprintf("Market is closed. Opens at %s", openStr),
			TradingHours: hours,
		}, nil
	}
	if minutes >= closeMin {
		return Decision{
			Open:         false,
			Reason:       fmt.Sprintf("Market is closed. Closed at %s", closeStr),
			TradingHours: hours,
		}, nil
	}
	return Decision{Open: true, TradingHours: hours}, nil
}

// Update appends a new MarketStatus row recording the admin change.
func (s *Service) Update(ctx context.Context, adminID uuid.UUID, override, openTime, closeTime string) (*domain.MarketStatus, error) {
	if override != "" && override != domain.MarketOverrideOpen && override != domain.MarketOverrideClosed {
		return nil, errors.New(`override must be "OPEN" or "CLOSED"`)
	}
	if openTime != "" && !validation.IsValidClock(openTime) {
		return nil, errors.New("open time must be in HH:MM format (24-hour)")
	}
	if closeTime != "" && !validation.IsValidClock(closeTime) {
		return nil, errors.New("close time must be in HH:MM format (24-hour)")
	}

	cur, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	defOpen, defClose := s.defaults()

	next := domain.MarketStatus{
		Override:      firstNonEmpty(override, fromCurrent(cur, func(m *domain.MarketStatus) string { return m.Override }), domain.MarketOverrideOpen),
		OpenTime:      firstNonEmpty(openTime, fromCurrent(cur, func(m *domain.MarketStatus) string { return m.OpenTime }), defOpen),
		CloseTime:     firstNonEmpty(closeTime, fromCurrent(cur, func(m *domain.MarketStatus) string { return m.CloseTime }), defClose),
		LastUpdatedBy: &adminID,
	}
	if err := s.DB.WithContext(ctx).Create(&next).Error; err != nil {
		return nil, err
	}
	return &next, nil
}

// History lists recent admin updates, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.MarketStatus, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []domain.MarketStatus
	if err := s.DB.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func clockMinutes(s string) int {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fromCurrent(m *domain.MarketStatus, get func(*domain.MarketStatus) string) string {
	if m == nil {
		return ""
	}
	return get(m)
}
