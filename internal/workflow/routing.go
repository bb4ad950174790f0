package workflow

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// RoutingDecision is what the resolver hands back to the host
// application after each approval action: where the request goes next,
// who must act there, and whether the acting approver still has to pick
// a specific recipient among several eligible ones.
type RoutingDecision struct {
	NextStatus       wf.Status
	NextRole         wf.Role
	RequiresChoice   bool
	AvailableOptions []uuid.UUID
	SkipVP           bool
	Annotations      []string
}

// ActionParams carries the routing hints an approver may attach to an
// approval action
type ActionParams struct {
	// ReturnToRequester sends the request back to draft
	ReturnToRequester bool
	// NextApproverID is an explicit recipient chosen by the approver
	NextApproverID *uuid.UUID
	// NextApproverRole is an explicit role override chosen by the approver
	NextApproverRole wf.Role
	// SendForPaymentConfirmation flags the comptroller's payment
	// confirmation sub-loop
	SendForPaymentConfirmation bool
	// PaymentConfirmed reports whether the requester has confirmed payment
	PaymentConfirmed bool
}

// HRRoutingContext is the decision context for the post-HR routing,
// the authoritative VP-vs-President rule.
type HRRoutingContext struct {
	RequesterIsHead    bool
	RequesterPosition  wf.Position
	HeadIncluded       bool
	TotalBudget        decimal.Decimal
	BudgetThreshold    decimal.Decimal
	ParentHeadSignerVP bool
}

// RouteAfterHead resolves routing after the department-head approval.
// hasParent must come from an actual department record; callers with no
// department on hand must fail with ErrMissingDepartment rather than
// guessing false.
func RouteAfterHead(params ActionParams, hasParent bool) RoutingDecision {
	if params.ReturnToRequester {
		return RoutingDecision{
			NextStatus: wf.StatusDraft,
			NextRole:   wf.RoleRequester,
		}
	}
	if hasParent {
		// Caller supplies the candidate parent heads in AvailableOptions.
		return RoutingDecision{
			NextStatus:     wf.StatusPendingParentHead,
			NextRole:       wf.RoleHead,
			RequiresChoice: true,
		}
	}
	return RoutingDecision{
		NextStatus:     wf.StatusPendingAdmin,
		NextRole:       wf.RoleAdmin,
		RequiresChoice: params.NextApproverID == nil,
	}
}

// RouteAfterParentHead resolves routing after the parent-department
// head approval
func RouteAfterParentHead(params ActionParams) RoutingDecision {
	return RoutingDecision{
		NextStatus:     wf.StatusPendingAdmin,
		NextRole:       wf.RoleAdmin,
		RequiresChoice: params.NextApproverID == nil,
	}
}

// RouteAfterAdmin resolves routing after the administrative processing
// stage
func RouteAfterAdmin(params ActionParams, hasBudget bool) RoutingDecision {
	next := wf.StatusPendingHR
	role := wf.RoleHR
	if hasBudget {
		next = wf.StatusPendingComptroller
		role = wf.RoleComptroller
	}
	return RoutingDecision{
		NextStatus:     next,
		NextRole:       role,
		RequiresChoice: params.NextApproverID == nil,
	}
}

// RouteAfterComptroller resolves routing after the comptroller stage.
// The payment-confirmation sub-loop keeps the status at
// pending_comptroller while handing the acting role to the requester:
// it is a role reassignment within the stage, not a new stage.
func RouteAfterComptroller(params ActionParams) RoutingDecision {
	if params.SendForPaymentConfirmation && !params.PaymentConfirmed {
		return RoutingDecision{
			NextStatus:  wf.StatusPendingComptroller,
			NextRole:    wf.RoleRequester,
			Annotations: []string{"awaiting requester payment confirmation"},
		}
	}
	return RoutingDecision{
		NextStatus: wf.StatusPendingHR,
		NextRole:   wf.RoleHR,
	}
}

// RouteAfterHR resolves the executive level after the HR stage. This is
// the canonical VP-vs-President decision: it runs with the most recent
// budget figure and knows who signed the parent-head stage, so it
// overrides any exec level seeded at creation time. Priority order:
//
//  1. requester is a head, director or dean  -> president, VP bypassed
//  2. the parent-head signer is VP-capable   -> president, VP skipped
//  3. total budget at or above the threshold -> president
//  4. otherwise                              -> vp
func RouteAfterHR(ctx HRRoutingContext) RoutingDecision {
	d := RoutingDecision{
		NextStatus: wf.StatusPendingExec,
		NextRole:   wf.RoleExec,
	}

	senior := ctx.RequesterIsHead ||
		ctx.RequesterPosition == wf.PositionDirector ||
		ctx.RequesterPosition == wf.PositionDean

	switch {
	case senior:
		d.SkipVP = true
		d.Annotations = append(d.Annotations, "VP bypassed: requester seniority")
	case ctx.ParentHeadSignerVP:
		d.SkipVP = true
		d.Annotations = append(d.Annotations, "VP skipped: parent head already signed as VP")
	case ctx.TotalBudget.GreaterThanOrEqual(ctx.BudgetThreshold):
		d.SkipVP = true
		d.Annotations = append(d.Annotations, "routed to president: budget at or above threshold")
	default:
		// Faculty with a head included routes to the VP. Faculty alone
		// should never reach HR (blocked by validation); if it does, vp
		// is still the default.
	}
	return d
}

// ExecRoleFor maps a post-HR decision to the concrete executive level
func ExecRoleFor(d RoutingDecision) wf.ExecLevel {
	if d.SkipVP {
		return wf.ExecLevelPresident
	}
	return wf.ExecLevelVP
}

// RouteAfterExec resolves routing after a VP or President approval.
// Both are terminal: head, director and dean requests never reach the
// VP (they go straight to the president), so a VP signature by
// construction completes the path.
func RouteAfterExec() RoutingDecision {
	return RoutingDecision{
		NextStatus: wf.StatusApproved,
		NextRole:   wf.RoleNone,
	}
}

// ParentChainDepthLimit bounds the defensive walk up the department
// hierarchy. Routing only ever uses the immediate parent, but the data
// allows arbitrary nesting, so the walk guards against cycles.
const ParentChainDepthLimit = 8

// ResolveParentChain returns the chain of parent departments from the
// immediate parent upward, stopping at the root, the depth limit, or a
// cycle. lookup returns nil for an unknown id.
func ResolveParentChain(dept *entity.Department, lookup func(uuid.UUID) *entity.Department) []*entity.Department {
	var chain []*entity.Department
	seen := map[uuid.UUID]bool{dept.ID: true}
	cur := dept
	for i := 0; i < ParentChainDepthLimit; i++ {
		if cur.ParentDepartmentID == nil {
			break
		}
		next := lookup(*cur.ParentDepartmentID)
		if next == nil || seen[next.ID] {
			break
		}
		seen[next.ID] = true
		chain = append(chain, next)
		cur = next
	}
	return chain
}
