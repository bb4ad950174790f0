package entity

import (
	"time"

	"github.com/google/uuid"

	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// Action constants for RequestHistory
const (
	ActionSubmit       = "SUBMIT"
	ActionApprove      = "APPROVE"
	ActionReject       = "REJECT"
	ActionReturn       = "RETURN"
	ActionBudgetEdit   = "BUDGET_EDIT"
	ActionHRAck        = "HR_ACK"
	ActionAuthFailure  = "AUTH_FAILURE"
	ActionAutoApproval = "AUTO_APPROVAL"
)

// RequestHistory is one audit-trail entry. Every transition writes one,
// and so does every refused attempt, so invalid actions are never lost.
type RequestHistory struct {
	ID             int64     `json:"id"`
	RequestID      uuid.UUID `json:"request_id"`
	ActorUserID    uuid.UUID `json:"actor_user_id"`
	Action         string    `json:"action"`
	PreviousStatus wf.Status `json:"previous_status"`
	NewStatus      wf.Status `json:"new_status"`
	Comments       string    `json:"comments,omitempty"`
	// Metadata carries enough to reconstruct timing and routing for
	// audit: signature time, submission time, who it was sent to.
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
