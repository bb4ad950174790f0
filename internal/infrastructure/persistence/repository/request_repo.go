package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/infrastructure/persistence/sqlite"
)

// RequestRepository implements port.RequestRepository on sqlite.
// Scalar routing fields get their own columns; the structured
// sub-records (participants, expense breakdown, per-stage approvals,
// metadata) are stored as JSON documents.
type RequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sqlite.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{db: db, logger: logger}
}

// requestDoc is the JSON payload for the structured sub-records
type requestDoc struct {
	Participants        []entity.Participant `json:"participants,omitempty"`
	ExpenseBreakdown    []entity.ExpenseItem `json:"expense_breakdown,omitempty"`
	HeadApproval        entity.StageApproval `json:"head_approval"`
	ParentHeadApproval  entity.StageApproval `json:"parent_head_approval"`
	AdminApproval       entity.StageApproval `json:"admin_approval"`
	ComptrollerApproval entity.StageApproval `json:"comptroller_approval"`
	HRApproval          entity.StageApproval `json:"hr_approval"`
	ExecApproval        entity.StageApproval `json:"exec_approval"`
	SmartSkipsApplied   []string             `json:"smart_skips_applied,omitempty"`
	WorkflowMetadata    map[string]string    `json:"workflow_metadata,omitempty"`
	VehicleType         string               `json:"vehicle_type,omitempty"`
	NeedsRental         bool                 `json:"needs_rental,omitempty"`
	PreferredDriverID   uuid.UUID            `json:"preferred_driver_id,omitempty"`
	AssignedDriverID    uuid.UUID            `json:"assigned_driver_id,omitempty"`
	AssignedVehicleID   uuid.UUID            `json:"assigned_vehicle_id,omitempty"`
	Destination         string               `json:"destination,omitempty"`
	RejectedBy          uuid.UUID            `json:"rejected_by,omitempty"`
	RejectedReason      string               `json:"rejected_reason,omitempty"`
	RejectedStage       wf.Status            `json:"rejected_stage,omitempty"`
	BudgetModifiedBy    uuid.UUID            `json:"budget_modified_by,omitempty"`
	PaymentPending      bool                 `json:"payment_confirmation_pending,omitempty"`
}

func packDoc(req *entity.TravelRequest) (string, error) {
	doc := requestDoc{
		Participants:        req.Participants,
		ExpenseBreakdown:    req.ExpenseBreakdown,
		HeadApproval:        req.HeadApproval,
		ParentHeadApproval:  req.ParentHeadApproval,
		AdminApproval:       req.AdminApproval,
		ComptrollerApproval: req.ComptrollerApproval,
		HRApproval:          req.HRApproval,
		ExecApproval:        req.ExecApproval,
		SmartSkipsApplied:   req.SmartSkipsApplied,
		WorkflowMetadata:    req.WorkflowMetadata,
		VehicleType:         req.VehicleType,
		NeedsRental:         req.NeedsRental,
		PreferredDriverID:   req.PreferredDriverID,
		AssignedDriverID:    req.AssignedDriverID,
		AssignedVehicleID:   req.AssignedVehicleID,
		Destination:         req.Destination,
		RejectedBy:          req.RejectedBy,
		RejectedReason:      req.RejectedReason,
		RejectedStage:       req.RejectedStage,
		BudgetModifiedBy:    req.BudgetLastModifiedBy,
		PaymentPending:      req.PaymentConfirmationPending,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal request doc: %w", err)
	}
	return string(data), nil
}

func unpackDoc(raw string, req *entity.TravelRequest) error {
	var doc requestDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("unmarshal request doc: %w", err)
	}
	req.Participants = doc.Participants
	req.ExpenseBreakdown = doc.ExpenseBreakdown
	req.HeadApproval = doc.HeadApproval
	req.ParentHeadApproval = doc.ParentHeadApproval
	req.AdminApproval = doc.AdminApproval
	req.ComptrollerApproval = doc.ComptrollerApproval
	req.HRApproval = doc.HRApproval
	req.ExecApproval = doc.ExecApproval
	req.SmartSkipsApplied = doc.SmartSkipsApplied
	req.WorkflowMetadata = doc.WorkflowMetadata
	req.VehicleType = doc.VehicleType
	req.NeedsRental = doc.NeedsRental
	req.PreferredDriverID = doc.PreferredDriverID
	req.AssignedDriverID = doc.AssignedDriverID
	req.AssignedVehicleID = doc.AssignedVehicleID
	req.Destination = doc.Destination
	req.RejectedBy = doc.RejectedBy
	req.RejectedReason = doc.RejectedReason
	req.RejectedStage = doc.RejectedStage
	req.BudgetLastModifiedBy = doc.BudgetModifiedBy
	req.PaymentConfirmationPending = doc.PaymentPending
	return nil
}

const requestColumns = `
	id, request_type, request_number, requester_id, requester_is_head,
	department_id, submitted_by, is_representative, head_included,
	requires_budget, total_budget, budget_version, budget_modified_at,
	needs_vehicle, is_international, status, active_role, exec_level,
	parent_routing, hr_budget_ack_required, hr_budget_ack_at,
	final_approved_at, rejected_at, doc, created_at, updated_at`

// Create inserts a new travel request
func (r *RequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	doc, err := packDoc(req)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO travel_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		req.ID.String(),
		req.RequestType,
		req.RequestNumber,
		req.RequesterID.String(),
		req.RequesterIsHead,
		req.DepartmentID.String(),
		req.SubmittedByUserID.String(),
		req.IsRepresentative,
		req.HeadIncluded,
		req.RequiresBudget,
		req.TotalBudget.String(),
		req.BudgetVersion,
		req.BudgetLastModifiedAt,
		req.NeedsVehicle,
		req.IsInternational,
		req.Status.String(),
		req.ActiveRole.String(),
		req.ExecLevel.String(),
		string(req.ParentRouting),
		req.HRBudgetAckRequired,
		req.HRBudgetAckAt,
		req.FinalApprovedAt,
		req.RejectedAt,
		doc,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *RequestRepository) scanRequest(row *sql.Row) (*entity.TravelRequest, error) {
	var req entity.TravelRequest
	var (
		id, requesterID, departmentID, submittedBy    string
		totalBudget, status, activeRole               string
		execLevel, parentRouting                      string
		budgetModifiedAt, hrAckAt, finalAt, rejectedAt sql.NullTime
		doc                                           string
	)

	err := row.Scan(
		&id, &req.RequestType, &req.RequestNumber, &requesterID, &req.RequesterIsHead,
		&departmentID, &submittedBy, &req.IsRepresentative, &req.HeadIncluded,
		&req.RequiresBudget, &totalBudget, &req.BudgetVersion, &budgetModifiedAt,
		&req.NeedsVehicle, &req.IsInternational, &status, &activeRole, &execLevel,
		&parentRouting, &req.HRBudgetAckRequired, &hrAckAt,
		&finalAt, &rejectedAt, &doc, &req.CreatedAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	if req.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid request id %q: %w", id, err)
	}
	if req.RequesterID, err = uuid.Parse(requesterID); err != nil {
		return nil, fmt.Errorf("invalid requester id %q: %w", requesterID, err)
	}
	if req.DepartmentID, err = uuid.Parse(departmentID); err != nil {
		return nil, fmt.Errorf("invalid department id %q: %w", departmentID, err)
	}
	if req.SubmittedByUserID, err = uuid.Parse(submittedBy); err != nil {
		return nil, fmt.Errorf("invalid submitter id %q: %w", submittedBy, err)
	}
	if req.TotalBudget, err = decimal.NewFromString(totalBudget); err != nil {
		return nil, fmt.Errorf("invalid budget %q: %w", totalBudget, err)
	}

	req.Status = wf.Status(status)
	req.ActiveRole = wf.Role(activeRole)
	req.ExecLevel = wf.ExecLevel(execLevel)
	req.ParentRouting = wf.ParentRouting(parentRouting)

	if budgetModifiedAt.Valid {
		req.BudgetLastModifiedAt = &budgetModifiedAt.Time
	}
	if hrAckAt.Valid {
		req.HRBudgetAckAt = &hrAckAt.Time
	}
	if finalAt.Valid {
		req.FinalApprovedAt = &finalAt.Time
	}
	if rejectedAt.Valid {
		req.RejectedAt = &rejectedAt.Time
	}

	if err := unpackDoc(doc, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByID retrieves a request by id
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests WHERE id = ?`
	req, err := r.scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id.String()))
	if err != nil {
		r.logger.Error("Failed to get request by id", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %s not found", id)
	}
	return req, nil
}

// GetByRequestNumber retrieves a request by its human-facing number
func (r *RequestRepository) GetByRequestNumber(ctx context.Context, number string) (*entity.TravelRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM travel_requests WHERE request_number = ?`
	req, err := r.scanRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, number))
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %s not found", number)
	}
	return req, nil
}

// Update writes the request back guarded by the expected current
// status. A false return means another writer advanced the request
// first; the caller must refresh and re-decide.
func (r *RequestRepository) Update(ctx context.Context, req *entity.TravelRequest, expectedStatus wf.Status) (bool, error) {
	doc, err := packDoc(req)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE travel_requests SET
			total_budget = ?, budget_version = ?, budget_modified_at = ?,
			status = ?, active_role = ?, exec_level = ?,
			hr_budget_ack_required = ?, hr_budget_ack_at = ?,
			final_approved_at = ?, rejected_at = ?, doc = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.TotalBudget.String(),
		req.BudgetVersion,
		req.BudgetLastModifiedAt,
		req.Status.String(),
		req.ActiveRole.String(),
		req.ExecLevel.String(),
		req.HRBudgetAckRequired,
		req.HRBudgetAckAt,
		req.FinalApprovedAt,
		req.RejectedAt,
		doc,
		req.UpdatedAt,
		req.ID.String(),
		expectedStatus.String(),
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", req.ID.String()), zap.Error(err))
		return false, fmt.Errorf("failed to update request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListByStatus returns requests at a given stage, newest first
func (r *RequestRepository) ListByStatus(ctx context.Context, status wf.Status, limit, offset int) ([]*entity.TravelRequest, error) {
	query := `
		SELECT id FROM travel_requests
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, status.String(), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan request id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid request id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	requests := make([]*entity.TravelRequest, 0, len(ids))
	for _, id := range ids {
		req, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}
