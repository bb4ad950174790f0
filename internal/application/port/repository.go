// Package port defines the persistence and directory interfaces the
// application services depend on. Implementations live under
// internal/infrastructure.
package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// RequestRepository persists travel requests
type RequestRepository interface {
	Create(ctx context.Context, req *entity.TravelRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error)
	GetByRequestNumber(ctx context.Context, number string) (*entity.TravelRequest, error)
	// Update writes the request back guarded by the expected current
	// status. Returns wf.ErrTerminalStatus-compatible conflict handling
	// at the caller: a false return means the precondition no longer
	// held and the caller must refresh and re-decide.
	Update(ctx context.Context, req *entity.TravelRequest, expectedStatus wf.Status) (bool, error)
	ListByStatus(ctx context.Context, status wf.Status, limit, offset int) ([]*entity.TravelRequest, error)
}

// DepartmentRepository supplies read-only department records
type DepartmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Department, error)
}

// UserRepository supplies read-only approver capability profiles
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error)
}

// HistoryRepository appends audit-trail entries
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.RequestHistory) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.RequestHistory, error)
}

// NotificationRepository records notification intents for the host
// application's dispatcher to deliver
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.NotificationIntent) error
	ListPending(ctx context.Context, limit int) ([]*entity.NotificationIntent, error)
	ListByRole(ctx context.Context, role wf.Role, limit int) ([]*entity.NotificationIntent, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkRead(ctx context.Context, id int64, at time.Time) error
}

// VehicleQuota reserves a slot in the daily vehicle-request quota.
// Reserve must count and insert atomically: concurrent submissions must
// never overrun the cap.
type VehicleQuota interface {
	// Reserve returns false when the day's quota is already exhausted
	Reserve(ctx context.Context, requestID uuid.UUID, day time.Time, quota int) (bool, error)
	// CountForDay returns the number of reservations already taken
	CountForDay(ctx context.Context, day time.Time) (int, error)
	// Release frees a reservation after a failed submission
	Release(ctx context.Context, requestID uuid.UUID) error
}

// TransactionManager scopes a function to a database transaction
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
