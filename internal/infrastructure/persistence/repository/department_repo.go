package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
)

// DepartmentRepository implements port.DepartmentRepository
type DepartmentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sqlite.DB, logger *zap.Logger) port.DepartmentRepository {
	return &DepartmentRepository{db: db, logger: logger}
}

// GetByID fetches a department record
func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	query := `
		SELECT id, name, parent_department_id, head_user_id, remaining_budget
		FROM departments
		WHERE id = ?
	`

	var (
		d                entity.Department
		deptID, headID   string
		parentID         sql.NullString
		remainingBudget  string
	)
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id.String()).Scan(
		&deptID, &d.Name, &parentID, &headID, &remainingBudget,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get department", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	if d.ID, err = uuid.Parse(deptID); err != nil {
		return nil, fmt.Errorf("invalid department id %q: %w", deptID, err)
	}
	if d.HeadUserID, err = uuid.Parse(headID); err != nil {
		return nil, fmt.Errorf("invalid head user id %q: %w", headID, err)
	}
	if parentID.Valid && parentID.String != "" {
		parent, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid parent department id %q: %w", parentID.String, err)
		}
		d.ParentDepartmentID = &parent
	}
	if d.RemainingBudget, err = decimal.NewFromString(remainingBudget); err != nil {
		return nil, fmt.Errorf("invalid remaining budget %q: %w", remainingBudget, err)
	}
	return &d, nil
}
