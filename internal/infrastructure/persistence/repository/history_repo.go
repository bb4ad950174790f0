package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Create appends an audit-trail entry
func (r *HistoryRepository) Create(ctx context.Context, h *entity.RequestHistory) error {
	metadata := "{}"
	if h.Metadata != nil {
		data, err := json.Marshal(h.Metadata)
		if err != nil {
			return fmt.Errorf("marshal history metadata: %w", err)
		}
		metadata = string(data)
	}

	query := `
		INSERT INTO request_history (
			request_id, actor_user_id, action, previous_status,
			new_status, comments, metadata, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Executor(ctx).ExecContext(ctx, query,
		h.RequestID.String(),
		h.ActorUserID.String(),
		h.Action,
		h.PreviousStatus.String(),
		h.NewStatus.String(),
		h.Comments,
		metadata,
		h.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history entry", zap.Error(err))
		return fmt.Errorf("failed to create history entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id
	return nil
}

// ListByRequest returns the audit trail for a request, oldest first
func (r *HistoryRepository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.RequestHistory, error) {
	query := `
		SELECT id, request_id, actor_user_id, action, previous_status,
			new_status, comments, metadata, timestamp
		FROM request_history
		WHERE request_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.RequestHistory
	for rows.Next() {
		var (
			h                        entity.RequestHistory
			reqID, actorID           string
			prevStatus, newStatus    string
			metadata                 string
		)
		if err := rows.Scan(&h.ID, &reqID, &actorID, &h.Action,
			&prevStatus, &newStatus, &h.Comments, &metadata, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if h.RequestID, err = uuid.Parse(reqID); err != nil {
			return nil, fmt.Errorf("invalid request id %q: %w", reqID, err)
		}
		if h.ActorUserID, err = uuid.Parse(actorID); err != nil {
			return nil, fmt.Errorf("invalid actor id %q: %w", actorID, err)
		}
		h.PreviousStatus = wf.Status(prevStatus)
		h.NewStatus = wf.Status(newStatus)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &h.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal history metadata: %w", err)
			}
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}
