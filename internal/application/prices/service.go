package prices

import (
	"context"
	"errors"

	"digigold-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrPriceUnavailable means no snapshot exists yet. Retryable service
	// error, not a user input error.
	ErrPriceUnavailable = errors.New("current prices unavailable")
	// ErrUnknownMetal is a validation error for a metal the snapshot does
	// not carry.
	ErrUnknownMetal = errors.New("invalid metal type")
)

// Service is the price oracle: latest-wins rate rows, read-only to the ledger.
type Service struct {
	DB *gorm.DB
}

// Latest returns the newest snapshot.
func (s *Service) Latest(ctx context.Context) (*domain.PriceSnapshot, error) {
	var snap domain.PriceSnapshot
	if err := s.DB.WithContext(ctx).Order("updated_at DESC").First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPriceUnavailable
		}
		return nil, err
	}
	return &snap, nil
}

// LatestRate returns the newest rate for one metal.
func (s *Service) LatestRate(ctx context.Context, metal domain.MetalType) (decimal.Decimal, error) {
	snap, err := s.Latest(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := snap.Rate(metal)
	if !ok {
		return decimal.Zero, ErrUnknownMetal
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrPriceUnavailable
	}
	return rate, nil
}

// RateIn resolves a metal's rate inside an already-open unit of work, so the
// price an atomic update uses is the one it records.
func RateIn(tx *gorm.DB, metal domain.MetalType) (decimal.Decimal, error) {
	var snap domain.PriceSnapshot
	if err := tx.Order("updated_at DESC").First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrPriceUnavailable
		}
		return decimal.Zero, err
	}
	rate, ok := snap.Rate(metal)
	if !ok {
		return decimal.Zero, ErrUnknownMetal
	}
	if !rate.IsPositive() {
		return decimal.Zero, ErrPriceUnavailable
	}
	return rate, nil
}

// Add appends a new snapshot row (admin price update).
func (s *Service) Add(ctx context.Context, gold24K, gold22K, silver decimal.Decimal) (*domain.PriceSnapshot, error) {
	if !gold24K.IsPositive() || !gold22K.IsPositive() || !silver.IsPositive() {
		return nil, errors.New("prices must be positive")
	}
	snap := domain.PriceSnapshot{
		Gold24K: gold24K,
		Gold22K: gold22K,
		Silver:  silver,
	}
	if err := s.DB.WithContext(ctx).Create(&snap).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}
