package transactions

import (
	"context"

	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service reads the append-only transaction log. Writes happen inside the
// settlement, holdings and plan units; nothing here mutates.
type Service struct {
	DB *gorm.DB
}

// ListForUser returns all of a user's transactions, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// ListPlanPayments returns a user's installment transactions, newest first.
func (s *Service) ListPlanPayments(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND type IN ?", userID, []string{domain.TxTypeSip, domain.TxTypeSipBonus}).
		Order("created_at DESC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
