package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrConflict is returned when the guarded status write finds the
// request already moved on. The caller refreshes and re-decides; the
// engine's transition functions are safely re-invokable.
var ErrConflict = errors.New("request was modified concurrently")

// Action names accepted by Act
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReturn  = "return"
)

// ActionInput carries one approver action
type ActionInput struct {
	Action    string
	Comments  string
	Signature string
	Params    workflow.ActionParams
	// BudgetModification is the comptroller's edited total, when present
	BudgetModification *decimal.Decimal
}

// SubmitResult reports the outcome of a submission attempt. A failed
// validation is not an error: the full violation list comes back for
// display.
type SubmitResult struct {
	Request    *entity.TravelRequest
	Validation workflow.ValidationResult
	Analytics  workflow.WorkflowAnalytics
}

// ActionResult reports the outcome of an approval action
type ActionResult struct {
	Request        *entity.TravelRequest
	PreviousStatus wf.Status
	Decision       workflow.RoutingDecision
}

// RequestService orchestrates the workflow engine against persistence:
// validate, route, write back, audit, record notification intents.
type RequestService interface {
	Submit(ctx context.Context, req *entity.TravelRequest) (*SubmitResult, error)
	Act(ctx context.Context, requestID, actorID uuid.UUID, input ActionInput) (*ActionResult, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error)
	History(ctx context.Context, id uuid.UUID) ([]*entity.RequestHistory, error)
	Analytics(ctx context.Context, id uuid.UUID) (workflow.WorkflowAnalytics, error)
}

type requestServiceImpl struct {
	engine       *workflow.SmartEngine
	requests     port.RequestRepository
	departments  port.DepartmentRepository
	users        port.UserRepository
	history      port.HistoryRepository
	notification port.NotificationRepository
	quota        port.VehicleQuota
	txManager    port.TransactionManager
	vehicleQuota int
	logger       Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	engine *workflow.SmartEngine,
	requests port.RequestRepository,
	departments port.DepartmentRepository,
	users port.UserRepository,
	history port.HistoryRepository,
	notification port.NotificationRepository,
	quota port.VehicleQuota,
	txManager port.TransactionManager,
	vehicleQuota int,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		engine:       engine,
		requests:     requests,
		departments:  departments,
		users:        users,
		history:      history,
		notification: notification,
		quota:        quota,
		txManager:    txManager,
		vehicleQuota: vehicleQuota,
		logger:       logger,
	}
}

// Submit validates a request, applies dual-signature skips, assigns the
// initial stage and persists everything in one transaction. Submission
// is idempotent by request number.
func (s *requestServiceImpl) Submit(ctx context.Context, req *entity.TravelRequest) (*SubmitResult, error) {
	if existing, err := s.requests.GetByRequestNumber(ctx, req.RequestNumber); err == nil && existing != nil {
		s.logger.Info("Request already submitted", "request_number", req.RequestNumber, "id", existing.ID)
		return &SubmitResult{Request: existing, Validation: workflow.ValidationResult{Valid: true}}, nil
	}

	requester, err := s.users.GetByID(ctx, req.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("load requester profile: %w", err)
	}
	if requester == nil {
		return nil, fmt.Errorf("requester %s not found", req.RequesterID)
	}
	dept, err := s.departments.GetByID(ctx, req.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if dept == nil {
		return nil, fmt.Errorf("%w: department %s", wf.ErrMissingDepartment, req.DepartmentID)
	}

	now := time.Now()
	vehicleCount := 0
	if req.NeedsVehicle {
		vehicleCount, err = s.quota.CountForDay(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("count vehicle quota: %w", err)
		}
	}

	validation := workflow.ValidateSubmission(req, workflow.ValidationContext{
		DepartmentRemaining:  dept.RemainingBudget,
		VehicleRequestsToday: vehicleCount,
		VehicleDailyQuota:    s.vehicleQuota,
	})
	if !validation.Valid {
		s.logger.Info("Submission failed validation",
			"request_number", req.RequestNumber, "violations", len(validation.Errors))
		return &SubmitResult{Request: req, Validation: validation}, nil
	}

	if req.NeedsVehicle {
		// Atomic count-and-reserve: concurrent submissions race for the
		// same day's slots, so the reservation is re-checked at the
		// persistence layer, not just in the validation read above.
		ok, err := s.quota.Reserve(ctx, req.ID, now, s.vehicleQuota)
		if err != nil {
			return nil, fmt.Errorf("reserve vehicle quota: %w", err)
		}
		if !ok {
			validation = workflow.ValidationResult{
				Valid: false,
				Errors: []string{fmt.Sprintf(
					"daily vehicle request limit of %d reached; submit without a vehicle or try again tomorrow",
					s.vehicleQuota)},
			}
			return &SubmitResult{Request: req, Validation: validation}, nil
		}
	}

	if req.BudgetVersion == 0 {
		req.BudgetVersion = 1
	}
	req.ParentRouting = wf.RoutingOwnOffice
	if dept.HasParent() {
		req.ParentRouting = wf.RoutingParentDept
	}

	s.engine.ApplyDualSignature(req, requester, now)
	req.ExecLevel = s.engine.DetermineExecutiveLevel(req, requester)

	status, err := s.engine.ResolveFrom(req, workflow.InitialStatus(req.RequesterIsHead))
	if err != nil {
		return nil, err
	}
	req.Status = status
	req.ActiveRole = workflow.ApproverRole(status)
	req.CreatedAt = now
	req.UpdatedAt = now

	action := entity.ActionSubmit
	if status == wf.StatusApproved {
		req.FinalApprovedAt = &now
		action = entity.ActionAutoApproval
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if err := s.history.Create(txCtx, &entity.RequestHistory{
			RequestID:      req.ID,
			ActorUserID:    req.SubmittedByUserID,
			Action:         action,
			PreviousStatus: wf.StatusDraft,
			NewStatus:      status,
			Metadata: map[string]string{
				"submission_time": now.Format(time.RFC3339),
				"sent_to_role":    req.ActiveRole.String(),
			},
			Timestamp: now,
		}); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		if req.ActiveRole != wf.RoleNone {
			if err := s.notification.Create(txCtx, &entity.NotificationIntent{
				RequestID:  req.ID,
				TargetRole: req.ActiveRole,
				Message:    fmt.Sprintf("Request %s awaits your approval", req.RequestNumber),
				ActionLink: "/requests/" + req.ID.String(),
				Status:     entity.NotificationStatusPending,
				CreatedAt:  now,
			}); err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if req.NeedsVehicle {
			if relErr := s.quota.Release(ctx, req.ID); relErr != nil {
				s.logger.Error("Failed to release vehicle quota reservation", "error", relErr, "id", req.ID)
			}
		}
		s.logger.Error("Failed to persist submission", "error", err, "request_number", req.RequestNumber)
		return nil, err
	}

	s.logger.Info("Request submitted",
		"id", req.ID, "request_number", req.RequestNumber,
		"status", status.String(), "skips", len(req.SmartSkipsApplied))

	return &SubmitResult{
		Request:    req,
		Validation: validation,
		Analytics:  s.engine.Analytics(req),
	}, nil
}

// Act applies one approver action and advances the pipeline
func (s *requestServiceImpl) Act(ctx context.Context, requestID, actorID uuid.UUID, input ActionInput) (*ActionResult, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", wf.ErrTerminalStatus, req.Status)
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor profile: %w", err)
	}
	if actor == nil {
		return nil, fmt.Errorf("actor %s not found", actorID)
	}

	now := time.Now()
	previous := req.Status

	if err := s.authorize(ctx, req, actor, now); err != nil {
		return nil, err
	}

	switch input.Action {
	case ActionReject:
		return s.reject(ctx, req, actor, input, previous, now)
	case ActionReturn:
		return s.returnToRequester(ctx, req, actor, input, previous, now)
	case ActionApprove:
		return s.approve(ctx, req, actor, input, previous, now)
	default:
		return nil, fmt.Errorf("unknown action %q", input.Action)
	}
}

// authorize checks the actor against the current stage and writes an
// audit entry on refusal so failed attempts are never silently lost
func (s *requestServiceImpl) authorize(ctx context.Context, req *entity.TravelRequest, actor *entity.ApproverProfile, now time.Time) error {
	authorized := false
	if req.ActiveRole == wf.RoleRequester {
		// Payment-confirmation sub-loop or returned draft: only the
		// requester (or their representative) may act.
		authorized = actor.ID == req.RequesterID || actor.ID == req.SubmittedByUserID
	} else {
		authorized = s.engine.CanApproveStage(actor, req.Status, req.ExecLevel)
	}
	if authorized {
		return nil
	}

	if err := s.history.Create(ctx, &entity.RequestHistory{
		RequestID:      req.ID,
		ActorUserID:    actor.ID,
		Action:         entity.ActionAuthFailure,
		PreviousStatus: req.Status,
		NewStatus:      req.Status,
		Metadata:       map[string]string{"reason": "capability mismatch for stage"},
		Timestamp:      now,
	}); err != nil {
		s.logger.Error("Failed to record authorization failure", "error", err, "id", req.ID)
	}
	s.logger.Info("Authorization refused", "id", req.ID, "actor", actor.ID, "status", req.Status.String())
	return fmt.Errorf("%w: %s", wf.ErrNotAuthorized, req.Status)
}

func (s *requestServiceImpl) reject(ctx context.Context, req *entity.TravelRequest, actor *entity.ApproverProfile, input ActionInput, previous wf.Status, now time.Time) (*ActionResult, error) {
	req.Status = wf.StatusRejected
	req.ActiveRole = wf.RoleNone
	req.RejectedAt = &now
	req.RejectedBy = actor.ID
	req.RejectedReason = input.Comments
	req.RejectedStage = previous
	req.UpdatedAt = now

	if err := s.persistTransition(ctx, req, previous, actor.ID, entity.ActionReject, input.Comments, &entity.NotificationIntent{
		RequestID:  req.ID,
		TargetUser: req.RequesterID,
		Message:    fmt.Sprintf("Request %s was rejected at %s", req.RequestNumber, previous),
		Status:     entity.NotificationStatusPending,
		CreatedAt:  now,
	}, now); err != nil {
		return nil, err
	}

	return &ActionResult{Request: req, PreviousStatus: previous}, nil
}

func (s *requestServiceImpl) returnToRequester(ctx context.Context, req *entity.TravelRequest, actor *entity.ApproverProfile, input ActionInput, previous wf.Status, now time.Time) (*ActionResult, error) {
	req.Status = wf.StatusDraft
	req.ActiveRole = wf.RoleRequester
	req.UpdatedAt = now

	if err := s.persistTransition(ctx, req, previous, actor.ID, entity.ActionReturn, input.Comments, &entity.NotificationIntent{
		RequestID:  req.ID,
		TargetUser: req.RequesterID,
		Message:    fmt.Sprintf("Request %s was returned to you for revision", req.RequestNumber),
		Status:     entity.NotificationStatusPending,
		CreatedAt:  now,
	}, now); err != nil {
		return nil, err
	}

	return &ActionResult{Request: req, PreviousStatus: previous}, nil
}

func (s *requestServiceImpl) approve(ctx context.Context, req *entity.TravelRequest, actor *entity.ApproverProfile, input ActionInput, previous wf.Status, now time.Time) (*ActionResult, error) {
	if a := req.Approval(previous); a != nil && !a.Signed() {
		a.Stamp(actor.ID, input.Signature, input.Comments, now)
	}

	decision, extraNotification, err := s.route(ctx, req, actor, input, previous, now)
	if err != nil {
		return nil, err
	}

	next := decision.NextStatus
	if next.IsPending() && next != wf.StatusPendingParentHead && next != wf.StatusPendingHRAck &&
		!(next == previous && decision.NextRole == wf.RoleRequester) {
		// Hop over stages the dual-signature logic already stamped.
		next, err = s.engine.ResolveFrom(req, next)
		if err != nil {
			return nil, err
		}
	}

	req.Status = next
	switch {
	case next == wf.StatusApproved:
		req.ActiveRole = wf.RoleNone
		req.FinalApprovedAt = &now
	case decision.NextRole == wf.RoleRequester:
		req.ActiveRole = wf.RoleRequester
	default:
		req.ActiveRole = workflow.ApproverRole(next)
	}
	req.UpdatedAt = now

	action := entity.ActionApprove
	if input.BudgetModification != nil && previous == wf.StatusPendingComptroller {
		action = entity.ActionBudgetEdit
	}
	if previous == wf.StatusPendingHRAck {
		action = entity.ActionHRAck
	}

	notify := s.advanceNotification(req, now)
	if err := s.persistTransition(ctx, req, previous, actor.ID, action, input.Comments, notify, now, extraNotification); err != nil {
		return nil, err
	}

	return &ActionResult{Request: req, PreviousStatus: previous, Decision: decision}, nil
}

// route computes the routing decision for the stage the actor just
// approved
func (s *requestServiceImpl) route(ctx context.Context, req *entity.TravelRequest, actor *entity.ApproverProfile, input ActionInput, previous wf.Status, now time.Time) (workflow.RoutingDecision, *entity.NotificationIntent, error) {
	switch previous {
	case wf.StatusPendingHead:
		dept, err := s.departments.GetByID(ctx, req.DepartmentID)
		if err != nil || dept == nil {
			// Never guess hasParentDepartment=false.
			return workflow.RoutingDecision{}, nil, fmt.Errorf("%w: department %s", wf.ErrMissingDepartment, req.DepartmentID)
		}
		return workflow.RouteAfterHead(input.Params, dept.HasParent()), nil, nil

	case wf.StatusPendingParentHead:
		if actor.IsVP() {
			req.SetMetadata("parent_head_signer_vp", "true")
		}
		return workflow.RouteAfterParentHead(input.Params), nil, nil

	case wf.StatusPendingAdmin:
		return workflow.RouteAfterAdmin(input.Params, req.RequiresBudget), nil, nil

	case wf.StatusPendingComptroller:
		if input.BudgetModification != nil {
			res, err := s.engine.HandleBudgetModification(req, *input.BudgetModification, actor.ID, now)
			if err != nil {
				return workflow.RoutingDecision{}, nil, err
			}
			return workflow.RoutingDecision{
				NextStatus: res.NextStatus,
				NextRole:   workflow.ApproverRole(res.NextStatus),
			}, res.Notification, nil
		}
		return workflow.RouteAfterComptroller(input.Params), nil, nil

	case wf.StatusPendingHR:
		requester, err := s.users.GetByID(ctx, req.RequesterID)
		if err != nil {
			return workflow.RoutingDecision{}, nil, fmt.Errorf("load requester profile: %w", err)
		}
		if requester == nil {
			return workflow.RoutingDecision{}, nil, fmt.Errorf("requester %s not found", req.RequesterID)
		}
		d := workflow.RouteAfterHR(workflow.HRRoutingContext{
			RequesterIsHead:    req.RequesterIsHead,
			RequesterPosition:  requester.Position,
			HeadIncluded:       req.HeadIncluded,
			TotalBudget:        req.TotalBudget,
			BudgetThreshold:    s.engine.Config().HRBudgetThreshold,
			ParentHeadSignerVP: req.WorkflowMetadata["parent_head_signer_vp"] == "true",
		})
		// The HR-time resolver is canonical; it overrides the exec level
		// seeded at creation.
		req.ExecLevel = workflow.ExecRoleFor(d)
		for _, a := range d.Annotations {
			req.SetMetadata("exec_routing", a)
		}
		return d, nil, nil

	case wf.StatusPendingHRAck:
		next, err := s.engine.AcknowledgeBudget(req, now)
		if err != nil {
			return workflow.RoutingDecision{}, nil, err
		}
		return workflow.RoutingDecision{NextStatus: next, NextRole: workflow.ApproverRole(next)}, nil, nil

	case wf.StatusPendingExec:
		return workflow.RouteAfterExec(), nil, nil

	default:
		return workflow.RoutingDecision{}, nil, fmt.Errorf("%w: %q", wf.ErrUnknownStatus, previous)
	}
}

func (s *requestServiceImpl) advanceNotification(req *entity.TravelRequest, now time.Time) *entity.NotificationIntent {
	switch {
	case req.Status == wf.StatusApproved:
		return &entity.NotificationIntent{
			RequestID:  req.ID,
			TargetUser: req.RequesterID,
			Message:    fmt.Sprintf("Request %s is fully approved", req.RequestNumber),
			Status:     entity.NotificationStatusPending,
			CreatedAt:  now,
		}
	case req.ActiveRole == wf.RoleRequester:
		return &entity.NotificationIntent{
			RequestID:  req.ID,
			TargetUser: req.RequesterID,
			Message:    fmt.Sprintf("Request %s needs your payment confirmation", req.RequestNumber),
			Status:     entity.NotificationStatusPending,
			CreatedAt:  now,
		}
	case req.ActiveRole != wf.RoleNone:
		return &entity.NotificationIntent{
			RequestID:  req.ID,
			TargetRole: req.ActiveRole,
			Message:    fmt.Sprintf("Request %s awaits your approval", req.RequestNumber),
			ActionLink: "/requests/" + req.ID.String(),
			Status:     entity.NotificationStatusPending,
			CreatedAt:  now,
		}
	}
	return nil
}

// persistTransition writes the request (guarded by the expected
// previous status), the audit entry and the notification intents in one
// transaction
func (s *requestServiceImpl) persistTransition(ctx context.Context, req *entity.TravelRequest, previous wf.Status, actorID uuid.UUID, action, comments string, notify *entity.NotificationIntent, now time.Time, extra ...*entity.NotificationIntent) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.requests.Update(txCtx, req, previous)
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if !ok {
			return ErrConflict
		}

		if err := s.history.Create(txCtx, &entity.RequestHistory{
			RequestID:      req.ID,
			ActorUserID:    actorID,
			Action:         action,
			PreviousStatus: previous,
			NewStatus:      req.Status,
			Comments:       comments,
			Metadata: map[string]string{
				"signature_time": now.Format(time.RFC3339),
				"sent_to_role":   req.ActiveRole.String(),
			},
			Timestamp: now,
		}); err != nil {
			return fmt.Errorf("create history: %w", err)
		}

		intents := append([]*entity.NotificationIntent{notify}, extra...)
		for _, n := range intents {
			if n == nil {
				continue
			}
			if err := s.notification.Create(txCtx, n); err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrConflict) {
			s.logger.Error("Failed to persist transition", "error", err, "id", req.ID)
		}
		return err
	}

	s.logger.Info("Request transitioned",
		"id", req.ID, "from", previous.String(), "to", req.Status.String(), "action", action)
	return nil
}

// Get retrieves a request by id
func (s *requestServiceImpl) Get(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// History returns the audit trail for a request
func (s *requestServiceImpl) History(ctx context.Context, id uuid.UUID) ([]*entity.RequestHistory, error) {
	return s.history.ListByRequest(ctx, id)
}

// Analytics returns the smart-engine skip statistics for a request
func (s *requestServiceImpl) Analytics(ctx context.Context, id uuid.UUID) (workflow.WorkflowAnalytics, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return workflow.WorkflowAnalytics{}, err
	}
	return s.engine.Analytics(req), nil
}
