package workflow

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

// Skip-reason tags recorded in TravelRequest.SmartSkipsApplied
const (
	SkipTagHeadSelfRequest        = "head_self_request"
	SkipTagComptrollerSelfRequest = "comptroller_self_request"
	SkipTagHRSelfRequest          = "hr_self_request"
	SkipTagExecSelfRequest        = "exec_self_request"
	SkipTagComptrollerNoBudget    = "comptroller_no_budget"
)

// SmartConfig holds the tunable facts of the self-approval engine
type SmartConfig struct {
	// HRBudgetThreshold routes faculty requests to the president when
	// the total budget reaches it (default PHP 5,000)
	HRBudgetThreshold decimal.Decimal
	// ExecBudgetThreshold forces president-level approval above it
	// (default PHP 50,000)
	ExecBudgetThreshold decimal.Decimal
	// AllowAdminAsComptroller keeps the historical fallback where the
	// admin capability also covers the comptroller stage
	AllowAdminAsComptroller bool
	// TimeSavedPerSkipDays feeds the analytics estimate
	TimeSavedPerSkipDays float64
}

// DefaultSmartConfig mirrors the institution's standing thresholds
func DefaultSmartConfig() SmartConfig {
	return SmartConfig{
		HRBudgetThreshold:       decimal.NewFromInt(5000),
		ExecBudgetThreshold:     decimal.NewFromInt(50000),
		AllowAdminAsComptroller: true,
		TimeSavedPerSkipDays:    0.5,
	}
}

// SmartEngine layers dual-signature auto-skips, budget-acknowledgment
// routing and executive-level determination on top of the base
// transition table. It holds configuration only; every method is a pure
// function of its arguments and the request it is handed.
type SmartEngine struct {
	cfg SmartConfig
}

// NewSmartEngine creates a smart engine with the given configuration
func NewSmartEngine(cfg SmartConfig) *SmartEngine {
	if cfg.HRBudgetThreshold.IsZero() {
		cfg.HRBudgetThreshold = decimal.NewFromInt(5000)
	}
	if cfg.ExecBudgetThreshold.IsZero() {
		cfg.ExecBudgetThreshold = decimal.NewFromInt(50000)
	}
	if cfg.TimeSavedPerSkipDays == 0 {
		cfg.TimeSavedPerSkipDays = 0.5
	}
	return &SmartEngine{cfg: cfg}
}

// Config returns the engine's configuration
func (e *SmartEngine) Config() SmartConfig {
	return e.cfg
}

// ApplyDualSignature stamps every upcoming stage whose approval role the
// requester already holds. Head, comptroller and HR stages each skip
// independently. The executive stage auto-approves only for a president
// requester: presidents outrank VPs, so a VP cannot dual-sign their own
// executive approval.
func (e *SmartEngine) ApplyDualSignature(req *entity.TravelRequest, requester *entity.ApproverProfile, now time.Time) {
	if requester.IsHead && !req.HeadApproval.Signed() {
		req.HeadApproval.StampSkipped(requester.ID, "Self-request (dual-signature)", now)
		req.AppendSkip(SkipTagHeadSelfRequest)
	}
	if requester.IsComptroller && req.RequiresBudget && !req.ComptrollerApproval.Signed() {
		req.ComptrollerApproval.StampSkipped(requester.ID, "Self-request (dual-signature)", now)
		req.AppendSkip(SkipTagComptrollerSelfRequest)
	}
	if requester.IsHR && !req.HRApproval.Signed() {
		req.HRApproval.StampSkipped(requester.ID, "Self-request (dual-signature)", now)
		req.AppendSkip(SkipTagHRSelfRequest)
	}
	if requester.IsPresident() && !req.ExecApproval.Signed() {
		req.ExecApproval.StampSkipped(requester.ID, "President dual-signature (self-request)", now)
		req.AppendSkip(SkipTagExecSelfRequest)
	}
}

// NextStage walks the canonical stage order starting just after the
// current stage, skipping stages that are already signed or structurally
// absent, and redirecting to the budget-acknowledgment sub-stage when
// one is pending. Walking past pending_exec yields approved.
func (e *SmartEngine) NextStage(req *entity.TravelRequest, current wf.Status) (wf.Status, error) {
	if !current.IsValid() {
		return "", fmt.Errorf("%w: %q", wf.ErrUnknownStatus, current)
	}
	if current.IsTerminal() {
		return current, nil
	}
	return e.resolveFrom(req, e.firstCandidateAfter(current))
}

// ResolveFrom runs the skip-aware walk treating candidate itself as the
// first stage to consider. Used at submission time (candidate is the
// base engine's initial status) and when a routing decision needs its
// nominal target checked against pre-applied signatures.
func (e *SmartEngine) ResolveFrom(req *entity.TravelRequest, candidate wf.Status) (wf.Status, error) {
	if !candidate.IsValid() {
		return "", fmt.Errorf("%w: %q", wf.ErrUnknownStatus, candidate)
	}
	if candidate.IsTerminal() || candidate == wf.StatusDraft ||
		candidate == wf.StatusPendingParentHead || candidate == wf.StatusPendingHRAck {
		// Detour and terminal stages resolve as themselves; the walk only
		// covers the canonical linear order.
		return candidate, nil
	}
	return e.resolveFrom(req, e.stageIndex(candidate))
}

func (e *SmartEngine) resolveFrom(req *entity.TravelRequest, idx int) (wf.Status, error) {
	for i := idx; i < len(wf.CanonicalStageOrder); i++ {
		stage := wf.CanonicalStageOrder[i]
		if stage == wf.StatusApproved {
			return wf.StatusApproved, nil
		}
		if stage == wf.StatusPendingComptroller && !req.RequiresBudget {
			if !req.ComptrollerApproval.Signed() {
				req.ComptrollerApproval.StampSkipped(uuid.Nil, "No budget requested", time.Now())
				req.AppendSkip(SkipTagComptrollerNoBudget)
			}
			continue
		}
		if stage == wf.StatusPendingHR && req.HRBudgetAckRequired && req.HRBudgetAckAt == nil {
			return wf.StatusPendingHRAck, nil
		}
		if req.StageSigned(stage) {
			continue
		}
		return stage, nil
	}
	return wf.StatusApproved, nil
}

// firstCandidateAfter maps the current status to the index of the next
// canonical stage to consider
func (e *SmartEngine) firstCandidateAfter(current wf.Status) int {
	switch current {
	case wf.StatusDraft:
		return 0
	case wf.StatusPendingParentHead:
		// Parent-head signature sits between head and admin.
		return e.stageIndex(wf.StatusPendingAdmin)
	case wf.StatusPendingHRAck:
		return e.stageIndex(wf.StatusPendingExec)
	default:
		return e.stageIndex(current) + 1
	}
}

func (e *SmartEngine) stageIndex(s wf.Status) int {
	for i, stage := range wf.CanonicalStageOrder {
		if stage == s {
			return i
		}
	}
	return len(wf.CanonicalStageOrder)
}

// DetermineExecutiveLevel seeds a request's exec_level at creation
// time. The post-HR resolver (RouteAfterHR) is canonical once the HR
// stage acts and overrides this value; this pre-computation exists so
// the field is never empty before HR acts.
func (e *SmartEngine) DetermineExecutiveLevel(req *entity.TravelRequest, requester *entity.ApproverProfile) wf.ExecLevel {
	if requester.IsPresident() {
		return wf.ExecLevelAutoApprove
	}
	if requester.IsVP() {
		// Peer-level escalation: a VP's own request needs the president.
		return wf.ExecLevelPresident
	}
	if req.TotalBudget.GreaterThan(e.cfg.ExecBudgetThreshold) || req.IsInternational {
		return wf.ExecLevelPresident
	}
	return wf.ExecLevelVP
}

// BudgetModificationResult is what a comptroller budget edit produces
type BudgetModificationResult struct {
	NextStatus   wf.Status
	Changed      bool
	Notification *entity.NotificationIntent
}

// HandleBudgetModification compares the comptroller's edited figure
// against the current one. A change bumps the budget version, requires
// HR acknowledgment, and routes through pending_hr_ack; an unchanged
// figure advances normally from the comptroller stage.
func (e *SmartEngine) HandleBudgetModification(req *entity.TravelRequest, newTotal decimal.Decimal, editedBy uuid.UUID, now time.Time) (BudgetModificationResult, error) {
	if newTotal.Equal(req.TotalBudget) {
		next, err := e.NextStage(req, wf.StatusPendingComptroller)
		if err != nil {
			return BudgetModificationResult{}, err
		}
		return BudgetModificationResult{NextStatus: next}, nil
	}

	previous := req.TotalBudget
	req.TotalBudget = newTotal
	req.BudgetVersion++
	req.BudgetLastModifiedAt = &now
	req.BudgetLastModifiedBy = editedBy
	req.HRBudgetAckRequired = true
	req.HRBudgetAckAt = nil

	return BudgetModificationResult{
		NextStatus: wf.StatusPendingHRAck,
		Changed:    true,
		Notification: &entity.NotificationIntent{
			RequestID:  req.ID,
			TargetRole: wf.RoleHR,
			Message: fmt.Sprintf("Budget for request %s modified from %s to %s (v%d); acknowledgment required",
				req.RequestNumber, FormatCurrency(previous), FormatCurrency(newTotal), req.BudgetVersion),
			Status: entity.NotificationStatusPending,
		},
	}, nil
}

// AcknowledgeBudget records the HR acknowledgment and resumes the walk
// at the executive stage
func (e *SmartEngine) AcknowledgeBudget(req *entity.TravelRequest, now time.Time) (wf.Status, error) {
	req.HRBudgetAckRequired = false
	req.HRBudgetAckAt = &now
	return e.NextStage(req, wf.StatusPendingHRAck)
}

// WorkflowAnalytics summarizes how much the smart engine shortened the
// pipeline. Display heuristic only.
type WorkflowAnalytics struct {
	SkippedStages     int     `json:"skipped_stages"`
	EfficiencyPercent int     `json:"efficiency_percentage"`
	TimeSavedDays     float64 `json:"time_saved_estimate_days"`
}

// Analytics derives skip statistics from the request's skip tags
func (e *SmartEngine) Analytics(req *entity.TravelRequest) WorkflowAnalytics {
	n := len(req.SmartSkipsApplied)
	return WorkflowAnalytics{
		SkippedStages:     n,
		EfficiencyPercent: int(math.Round(float64(n) / 5 * 100)),
		TimeSavedDays:     float64(n) * e.cfg.TimeSavedPerSkipDays,
	}
}

// CanApproveStage is the capability check with the modern comptroller
// split: pending_comptroller prefers the comptroller capability and
// falls back to admin only when the compatibility flag allows it, and a
// president-level executive stage demands a president, never a VP.
func (e *SmartEngine) CanApproveStage(profile *entity.ApproverProfile, status wf.Status, execLevel wf.ExecLevel) bool {
	switch status {
	case wf.StatusPendingHead, wf.StatusPendingParentHead:
		return profile.IsHead
	case wf.StatusPendingAdmin:
		return profile.IsAdmin
	case wf.StatusPendingComptroller:
		if profile.IsComptroller {
			return true
		}
		return e.cfg.AllowAdminAsComptroller && profile.IsAdmin
	case wf.StatusPendingHR, wf.StatusPendingHRAck:
		return profile.IsHR
	case wf.StatusPendingExec:
		if !profile.IsExec {
			return false
		}
		if execLevel == wf.ExecLevelPresident {
			return profile.ExecType == wf.ExecLevelPresident
		}
		return true
	default:
		return false
	}
}

// FormatCurrency renders a peso amount with thousands separators, e.g.
// ₱12,500.00
func FormatCurrency(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if dot := len(s) - 3; dot >= 0 && s[dot] == '.' {
		intPart, fracPart = s[:dot], s[dot:]
	}
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	result := "₱" + string(out) + fracPart
	if neg {
		result = "-" + result
	}
	return result
}
