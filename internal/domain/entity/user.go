package entity

import (
	"github.com/google/uuid"

	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// ApproverProfile is the read-only capability snapshot fetched per
// approval action. The engine never mutates it.
type ApproverProfile struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Position wf.Position `json:"position"`

	IsHead        bool `json:"is_head"`
	IsAdmin       bool `json:"is_admin"`
	IsComptroller bool `json:"is_comptroller"`
	IsHR          bool `json:"is_hr"`
	IsExec        bool `json:"is_exec"`

	// ExecType is set only when IsExec is true
	ExecType wf.ExecLevel `json:"exec_type,omitempty"`
}

// IsPresident reports whether the profile holds the president seat
func (p *ApproverProfile) IsPresident() bool {
	return p.IsExec && p.ExecType == wf.ExecLevelPresident
}

// IsVP reports whether the profile holds a vice-president seat
func (p *ApproverProfile) IsVP() bool {
	return p.IsExec && p.ExecType == wf.ExecLevelVP
}

// SeniorByPosition reports whether the requester's position alone
// bypasses the VP stage (head, director or dean).
func (p *ApproverProfile) SeniorByPosition() bool {
	switch p.Position {
	case wf.PositionHead, wf.PositionDirector, wf.PositionDean:
		return true
	}
	return false
}
