package notifications

import (
	"context"
	"fmt"

	"digigold-backend/internal/application/emails"
	"digigold-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the notification sink: a persisted row plus an optional email
// leg. It is fire-and-forget from the ledger's perspective: a delivery
// failure is logged, never propagated, and never rolls back a financial
// effect.
type Service struct {
	DB     *gorm.DB
	Emails emails.Sender
}

// Notify persists a notification and attempts email delivery.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, title, message, kind string) {
	if kind == "" {
		kind = domain.NotificationGeneral
	}
	if err := s.DB.WithContext(ctx).Create(&domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	}).Error; err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("notification persist failed")
	}

	s.Email(ctx, userID, title, message)
}

// Email delivers only the email leg. Callers that already persisted the
// notification row inside their own unit use this to avoid a second row.
func (s *Service) Email(ctx context.Context, userID uuid.UUID, title, message string) {
	if s.Emails == nil {
		return
	}
	var user domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("notification recipient lookup failed")
		return
	}
	html := fmt.Sprintf("<p>%s</p>", message)
	if err := s.Emails.Send(ctx, user.Email, title, html); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("notification email failed")
	}
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Notification, error) {
	var rows []domain.Notification
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead flips one notification to read; owner-checked.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
