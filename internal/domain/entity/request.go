package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// RequestType distinguishes the two document kinds the pipeline carries
const (
	RequestTypeTravelOrder = "travel_order"
	RequestTypeSeminar     = "seminar"
)

// Participant is one person travelling or attending under a request
type Participant struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Role   string    `json:"role"`
}

// ExpenseItem is one line of the budget breakdown
type ExpenseItem struct {
	Item        string          `json:"item"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// StageApproval holds the per-stage signature record. A stage counts as
// signed once ApprovedAt is set, whether by a live approver or by the
// smart engine's dual-signature stamp.
type StageApproval struct {
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy uuid.UUID  `json:"approved_by,omitempty"`
	Signature  string     `json:"signature,omitempty"`
	Comments   string     `json:"comments,omitempty"`
	Skipped    bool       `json:"skipped,omitempty"`
	SkipReason string     `json:"skip_reason,omitempty"`
}

// Signed returns true if the stage carries a signature or a skip stamp
func (a *StageApproval) Signed() bool {
	return a.ApprovedAt != nil
}

// Stamp records an approval on the stage
func (a *StageApproval) Stamp(by uuid.UUID, signature, comments string, at time.Time) {
	t := at
	a.ApprovedAt = &t
	a.ApprovedBy = by
	a.Signature = signature
	a.Comments = comments
}

// StampSkipped records an auto-skip on the stage
func (a *StageApproval) StampSkipped(by uuid.UUID, reason string, at time.Time) {
	t := at
	a.ApprovedAt = &t
	a.ApprovedBy = by
	a.Skipped = true
	a.SkipReason = reason
}

// TravelRequest is the central aggregate the workflow engine operates on.
// Users and departments are read-only inputs; this is the only entity
// the engine mutates.
type TravelRequest struct {
	ID            uuid.UUID `json:"id"`
	RequestType   string    `json:"request_type"`
	RequestNumber string    `json:"request_number"`

	RequesterID       uuid.UUID `json:"requester_id"`
	RequesterIsHead   bool      `json:"requester_is_head"`
	DepartmentID      uuid.UUID `json:"department_id"`
	SubmittedByUserID uuid.UUID `json:"submitted_by_user_id"`
	IsRepresentative  bool      `json:"is_representative"`

	Participants []Participant `json:"participants"`
	HeadIncluded bool          `json:"head_included"`

	RequiresBudget       bool            `json:"requires_budget"`
	TotalBudget          decimal.Decimal `json:"total_budget"`
	ExpenseBreakdown     []ExpenseItem   `json:"expense_breakdown,omitempty"`
	BudgetVersion        int             `json:"budget_version"`
	BudgetLastModifiedAt *time.Time      `json:"budget_last_modified_at,omitempty"`
	BudgetLastModifiedBy uuid.UUID       `json:"budget_last_modified_by,omitempty"`

	NeedsVehicle      bool      `json:"needs_vehicle"`
	VehicleType       string    `json:"vehicle_type,omitempty"`
	NeedsRental       bool      `json:"needs_rental,omitempty"`
	PreferredDriverID uuid.UUID `json:"preferred_driver_id,omitempty"`
	AssignedDriverID  uuid.UUID `json:"assigned_driver_id,omitempty"`
	AssignedVehicleID uuid.UUID `json:"assigned_vehicle_id,omitempty"`

	Destination     string `json:"destination,omitempty"`
	IsInternational bool   `json:"is_international"`

	Status        wf.Status        `json:"status"`
	ActiveRole    wf.Role          `json:"active_role"`
	ExecLevel     wf.ExecLevel     `json:"exec_level,omitempty"`
	ParentRouting wf.ParentRouting `json:"parent_department_routing,omitempty"`

	HeadApproval        StageApproval `json:"head_approval"`
	ParentHeadApproval  StageApproval `json:"parent_head_approval"`
	AdminApproval       StageApproval `json:"admin_approval"`
	ComptrollerApproval StageApproval `json:"comptroller_approval"`
	HRApproval          StageApproval `json:"hr_approval"`
	ExecApproval        StageApproval `json:"exec_approval"`

	HRBudgetAckRequired bool       `json:"hr_budget_ack_required"`
	HRBudgetAckAt       *time.Time `json:"hr_budget_ack_at,omitempty"`

	PaymentConfirmationPending bool `json:"payment_confirmation_pending"`

	FinalApprovedAt *time.Time `json:"final_approved_at,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      uuid.UUID  `json:"rejected_by,omitempty"`
	RejectedReason  string     `json:"rejected_reason,omitempty"`
	RejectedStage   wf.Status  `json:"rejected_stage,omitempty"`

	SmartSkipsApplied []string          `json:"smart_skips_applied,omitempty"`
	WorkflowMetadata  map[string]string `json:"workflow_metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Approval returns the signature record for the stage, or nil for
// stages that carry no signature (draft, terminal, hr_ack).
func (r *TravelRequest) Approval(status wf.Status) *StageApproval {
	switch status {
	case wf.StatusPendingHead:
		return &r.HeadApproval
	case wf.StatusPendingParentHead:
		return &r.ParentHeadApproval
	case wf.StatusPendingAdmin:
		return &r.AdminApproval
	case wf.StatusPendingComptroller:
		return &r.ComptrollerApproval
	case wf.StatusPendingHR:
		return &r.HRApproval
	case wf.StatusPendingExec:
		return &r.ExecApproval
	default:
		return nil
	}
}

// StageSigned reports whether the stage already carries a signature
func (r *TravelRequest) StageSigned(status wf.Status) bool {
	a := r.Approval(status)
	return a != nil && a.Signed()
}

// AppendSkip records a smart-engine skip tag in application order
func (r *TravelRequest) AppendSkip(tag string) {
	r.SmartSkipsApplied = append(r.SmartSkipsApplied, tag)
}

// SetMetadata stores a free-form routing hint
func (r *TravelRequest) SetMetadata(key, value string) {
	if r.WorkflowMetadata == nil {
		r.WorkflowMetadata = make(map[string]string)
	}
	r.WorkflowMetadata[key] = value
}
