package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medhelp/medhelp/internal/platform/ws"
)

// Pusher delivers an event to a live connection if the recipient holds one.
type Pusher interface {
	Send(userID string, event ws.Event)
}

type Service struct {
	repo   Repository
	pusher Pusher
	logger zerolog.Logger
}

func NewService(repo Repository, pusher Pusher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Notify persists a notification and attempts best-effort real-time
// delivery. It never fails the caller: persistence errors are logged and
// swallowed, and an offline recipient simply reads the stored record later.
func (s *Service) Notify(ctx context.Context, recipientID uuid.UUID, title, message, notificationType string) {
	n := &Notification{
		UserID:  recipientID,
		Title:   title,
		Message: message,
		Type:    notificationType,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("user_id", recipientID.String()).
			Msg("failed to persist notification")
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal notification")
		return
	}
	s.pusher.Send(recipientID.String(), ws.Event{
		Type:      "notification",
		Message:   n.Message,
		Timestamp: n.CreatedAt,
		Data:      data,
	})
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkRead flips the is_read flag. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, id, callerID uuid.UUID) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != callerID {
		return nil, ErrForbidden
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}
