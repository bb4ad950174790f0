// Package workflow implements the approval-routing engine for travel
// and seminar requests: the base stage-transition table, the
// post-approval routing resolver, the smart self-approval engine and
// the pre-submission validation gate. Everything in this package is
// pure and stateless between calls; persistence, notification dispatch
// and rendering belong to the host application.
package workflow

import (
	"fmt"
	"math"

	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// InitialStatus returns the first pipeline stage for a newly submitted
// request. Heads skip their own approval stage.
func InitialStatus(requesterIsHead bool) wf.Status {
	if requesterIsHead {
		return wf.StatusPendingAdmin
	}
	return wf.StatusPendingHead
}

// NextStatus is the canonical baseline transition function: given the
// current stage and the request's structural facts, it returns the next
// stage. Terminal statuses return themselves. A status outside the
// closed set is a hard error, never coerced to a default stage.
func NextStatus(current wf.Status, requesterIsHead, hasBudget, hasParentDepartment bool) (wf.Status, error) {
	switch current {
	case wf.StatusDraft:
		return InitialStatus(requesterIsHead), nil
	case wf.StatusPendingHead:
		if hasParentDepartment {
			return wf.StatusPendingParentHead, nil
		}
		return wf.StatusPendingAdmin, nil
	case wf.StatusPendingParentHead:
		return wf.StatusPendingAdmin, nil
	case wf.StatusPendingAdmin:
		if hasBudget {
			return wf.StatusPendingComptroller, nil
		}
		return wf.StatusPendingHR, nil
	case wf.StatusPendingComptroller:
		return wf.StatusPendingHR, nil
	case wf.StatusPendingHR:
		return wf.StatusPendingExec, nil
	case wf.StatusPendingHRAck:
		return wf.StatusPendingExec, nil
	case wf.StatusPendingExec:
		return wf.StatusApproved, nil
	case wf.StatusApproved, wf.StatusRejected, wf.StatusCancelled:
		return current, nil
	default:
		return "", fmt.Errorf("%w: %q", wf.ErrUnknownStatus, current)
	}
}

// ApproverRole is the pure status-to-role lookup. Statuses with no
// approver (draft, terminal) map to RoleNone.
func ApproverRole(status wf.Status) wf.Role {
	switch status {
	case wf.StatusPendingHead, wf.StatusPendingParentHead:
		return wf.RoleHead
	case wf.StatusPendingAdmin:
		return wf.RoleAdmin
	case wf.StatusPendingComptroller:
		return wf.RoleComptroller
	case wf.StatusPendingHR, wf.StatusPendingHRAck:
		return wf.RoleHR
	case wf.StatusPendingExec:
		return wf.RoleExec
	default:
		return wf.RoleNone
	}
}

// Capabilities is the flag subset of the approver profile that the base
// authorization check consumes
type Capabilities struct {
	IsHead        bool
	IsAdmin       bool
	IsComptroller bool
	IsHR          bool
	IsExec        bool
}

// CanApprove is the legacy capability check. The admin capability
// covers both pending_admin and pending_comptroller here; historically
// the same administrative role processed both stages. The smart
// engine's CanApproveStage treats comptroller as a distinct capability.
func CanApprove(caps Capabilities, status wf.Status) bool {
	switch status {
	case wf.StatusPendingHead, wf.StatusPendingParentHead:
		return caps.IsHead
	case wf.StatusPendingAdmin, wf.StatusPendingComptroller:
		return caps.IsAdmin
	case wf.StatusPendingHR, wf.StatusPendingHRAck:
		return caps.IsHR
	case wf.StatusPendingExec:
		return caps.IsExec
	default:
		return false
	}
}

// ProgressPercent is a display aid for progress bars, not authoritative
// for gating. Completed steps over total steps, where the totals depend
// on whether the head and comptroller stages exist for this request.
func ProgressPercent(status wf.Status, requesterIsHead, hasBudget bool) int {
	steps := []wf.Status{}
	if !requesterIsHead {
		steps = append(steps, wf.StatusPendingHead)
	}
	steps = append(steps, wf.StatusPendingAdmin)
	if hasBudget {
		steps = append(steps, wf.StatusPendingComptroller)
	}
	steps = append(steps, wf.StatusPendingHR, wf.StatusPendingExec)

	switch status {
	case wf.StatusApproved:
		return 100
	case wf.StatusDraft, wf.StatusRejected, wf.StatusCancelled:
		return 0
	}

	completed := 0
	for _, s := range steps {
		if s.Before(status) {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(steps)) * 100))
}
