package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// GetByID fetches an approver capability profile
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
	query := `
		SELECT id, name, email, position, is_head, is_admin,
			is_comptroller, is_hr, is_exec, exec_type
		FROM users
		WHERE id = ?
	`

	var (
		p                  entity.ApproverProfile
		userID, position   string
		execType           sql.NullString
	)
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id.String()).Scan(
		&userID, &p.Name, &p.Email, &position,
		&p.IsHead, &p.IsAdmin, &p.IsComptroller, &p.IsHR, &p.IsExec,
		&execType,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if p.ID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	p.Position = wf.Position(position)
	if execType.Valid {
		p.ExecType = wf.ExecLevel(execType.String)
	}
	return &p, nil
}
