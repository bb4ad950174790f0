package service

import (
	"context"
	"time"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// NotificationService exposes the recorded notification intents to the
// host application's dispatcher and inbox views
type NotificationService interface {
	ListPending(ctx context.Context, limit int) ([]*entity.NotificationIntent, error)
	ListForRole(ctx context.Context, role wf.Role, limit int) ([]*entity.NotificationIntent, error)
	MarkRead(ctx context.Context, id int64) error
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications port.NotificationRepository, logger Logger) NotificationService {
	return &notificationServiceImpl{notifications: notifications, logger: logger}
}

func (s *notificationServiceImpl) ListPending(ctx context.Context, limit int) ([]*entity.NotificationIntent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.notifications.ListPending(ctx, limit)
}

func (s *notificationServiceImpl) ListForRole(ctx context.Context, role wf.Role, limit int) ([]*entity.NotificationIntent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.notifications.ListByRole(ctx, role, limit)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, id int64) error {
	if err := s.notifications.MarkRead(ctx, id, time.Now()); err != nil {
		s.logger.Error("Failed to mark notification read", "error", err, "id", id)
		return err
	}
	return nil
}
