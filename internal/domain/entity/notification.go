package entity

import (
	"time"

	"github.com/google/uuid"

	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusRead    = "READ"
)

// NotificationIntent describes that a notification should occur and to
// whom. Dispatch (email, in-app, chat) is the host application's
// responsibility; the engine only produces these records.
type NotificationIntent struct {
	ID         int64     `json:"id"`
	RequestID  uuid.UUID `json:"request_id"`
	TargetRole wf.Role   `json:"target_role,omitempty"`
	TargetUser uuid.UUID `json:"target_user,omitempty"`
	Message    string    `json:"message"`
	ActionLink string    `json:"action_link,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}
