package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
)

// VehicleQuotaRepository implements port.VehicleQuota on a reservations
// table keyed by calendar day
type VehicleQuotaRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewVehicleQuotaRepository creates a new vehicle quota repository
func NewVehicleQuotaRepository(db *sqlite.DB, logger *zap.Logger) port.VehicleQuota {
	return &VehicleQuotaRepository{db: db, logger: logger}
}

const quotaDayFormat = "2006-01-02"

// Reserve takes a slot in the day's quota. The count check and insert
// run as one statement so concurrent submissions cannot overrun the cap.
func (r *VehicleQuotaRepository) Reserve(ctx context.Context, requestID uuid.UUID, day time.Time, quota int) (bool, error) {
	dayKey := day.Format(quotaDayFormat)

	query := `
		INSERT INTO vehicle_quota_reservations (request_id, day, reserved_at)
		SELECT ?, ?, ?
		WHERE (SELECT COUNT(*) FROM vehicle_quota_reservations WHERE day = ?) < ?
	`

	res, err := r.db.Executor(ctx).ExecContext(ctx, query,
		requestID.String(), dayKey, time.Now().UTC(), dayKey, quota,
	)
	if err != nil {
		r.logger.Error("Failed to reserve vehicle quota",
			zap.String("day", dayKey), zap.Error(err))
		return false, fmt.Errorf("failed to reserve vehicle quota: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// CountForDay returns the number of reservations already taken
func (r *VehicleQuotaRepository) CountForDay(ctx context.Context, day time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM vehicle_quota_reservations WHERE day = ?`

	var count int
	if err := r.db.Executor(ctx).QueryRowContext(ctx, query, day.Format(quotaDayFormat)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vehicle reservations: %w", err)
	}
	return count, nil
}

// Release frees a reservation after a failed submission
func (r *VehicleQuotaRepository) Release(ctx context.Context, requestID uuid.UUID) error {
	query := `DELETE FROM vehicle_quota_reservations WHERE request_id = ?`
	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, requestID.String()); err != nil {
		r.logger.Error("Failed to release vehicle reservation",
			zap.String("request_id", requestID.String()), zap.Error(err))
		return fmt.Errorf("failed to release vehicle reservation: %w", err)
	}
	return nil
}
