package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlite.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// Create records a notification intent
func (r *NotificationRepository) Create(ctx context.Context, n *entity.NotificationIntent) error {
	targetUser := ""
	if n.TargetUser != uuid.Nil {
		targetUser = n.TargetUser.String()
	}

	query := `
		INSERT INTO notification_intents (
			request_id, target_role, target_user, message, action_link,
			status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Executor(ctx).ExecContext(ctx, query,
		n.RequestID.String(),
		n.TargetRole.String(),
		targetUser,
		n.Message,
		n.ActionLink,
		n.Status,
		n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification intent", zap.Error(err))
		return fmt.Errorf("failed to create notification intent: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	return nil
}

func (r *NotificationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.NotificationIntent, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification intents: %w", err)
	}
	defer rows.Close()

	var intents []*entity.NotificationIntent
	for rows.Next() {
		var (
			n                 entity.NotificationIntent
			reqID, role, user string
			sentAt, readAt    sql.NullTime
		)
		if err := rows.Scan(&n.ID, &reqID, &role, &user, &n.Message,
			&n.ActionLink, &n.Status, &n.CreatedAt, &sentAt, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification intent: %w", err)
		}
		if n.RequestID, err = uuid.Parse(reqID); err != nil {
			return nil, fmt.Errorf("invalid request id %q: %w", reqID, err)
		}
		n.TargetRole = wf.Role(role)
		if user != "" {
			if n.TargetUser, err = uuid.Parse(user); err != nil {
				return nil, fmt.Errorf("invalid target user %q: %w", user, err)
			}
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		intents = append(intents, &n)
	}
	return intents, rows.Err()
}

const notificationColumns = `
	id, request_id, target_role, target_user, message, action_link,
	status, created_at, sent_at, read_at`

// ListPending returns undelivered intents, oldest first
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*entity.NotificationIntent, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notification_intents
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?`
	return r.list(ctx, query, entity.NotificationStatusPending, limit)
}

// ListByRole returns intents addressed to a role, newest first
func (r *NotificationRepository) ListByRole(ctx context.Context, role wf.Role, limit int) ([]*entity.NotificationIntent, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notification_intents
		WHERE target_role = ?
		ORDER BY created_at DESC
		LIMIT ?`
	return r.list(ctx, query, role.String(), limit)
}

// MarkSent stamps an intent as delivered
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE notification_intents SET status = ?, sent_at = ? WHERE id = ? AND status = ?`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, entity.NotificationStatusSent, at, id, entity.NotificationStatusPending); err != nil {
		r.logger.Error("Failed to mark notification sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkRead stamps an intent as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE notification_intents SET status = ?, read_at = ? WHERE id = ?`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, entity.NotificationStatusRead, at, id); err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
