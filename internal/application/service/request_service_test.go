package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/workflow"
)

// Mock ports

type mockRequestRepo struct {
	createFunc      func(ctx context.Context, req *entity.TravelRequest) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error)
	getByNumberFunc func(ctx context.Context, number string) (*entity.TravelRequest, error)
	updateFunc      func(ctx context.Context, req *entity.TravelRequest, expected wf.Status) (bool, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.TravelRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("not found")
}

func (m *mockRequestRepo) GetByRequestNumber(ctx context.Context, number string) (*entity.TravelRequest, error) {
	if m.getByNumberFunc != nil {
		return m.getByNumberFunc(ctx, number)
	}
	return nil, errors.New("not found")
}

func (m *mockRequestRepo) Update(ctx context.Context, req *entity.TravelRequest, expected wf.Status) (bool, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, req, expected)
	}
	return true, nil
}

func (m *mockRequestRepo) ListByStatus(ctx context.Context, status wf.Status, limit, offset int) ([]*entity.TravelRequest, error) {
	return nil, nil
}

type mockDeptRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*entity.Department, error)
}

func (m *mockDeptRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Department{ID: id, RemainingBudget: decimal.NewFromInt(1000000)}, nil
}

type mockUserRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.ApproverProfile{ID: id, Position: wf.PositionFaculty}, nil
}

type mockHistoryRepo struct {
	entries []*entity.RequestHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.RequestHistory) error {
	m.entries = append(m.entries, h)
	return nil
}

func (m *mockHistoryRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.RequestHistory, error) {
	return m.entries, nil
}

type mockNotificationRepo struct {
	intents []*entity.NotificationIntent
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.NotificationIntent) error {
	m.intents = append(m.intents, n)
	return nil
}

func (m *mockNotificationRepo) ListPending(ctx context.Context, limit int) ([]*entity.NotificationIntent, error) {
	return m.intents, nil
}

func (m *mockNotificationRepo) ListByRole(ctx context.Context, role wf.Role, limit int) ([]*entity.NotificationIntent, error) {
	return m.intents, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id int64, at time.Time) error {
	return nil
}

type mockQuota struct {
	count       int
	reserveFunc func(ctx context.Context, requestID uuid.UUID, day time.Time, quota int) (bool, error)
}

func (m *mockQuota) Reserve(ctx context.Context, requestID uuid.UUID, day time.Time, quota int) (bool, error) {
	if m.reserveFunc != nil {
		return m.reserveFunc(ctx, requestID, day, quota)
	}
	return m.count < quota, nil
}

func (m *mockQuota) CountForDay(ctx context.Context, day time.Time) (int, error) {
	return m.count, nil
}

func (m *mockQuota) Release(ctx context.Context, requestID uuid.UUID) error {
	return nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type fixture struct {
	svc           RequestService
	requests      *mockRequestRepo
	departments   *mockDeptRepo
	users         *mockUserRepo
	history       *mockHistoryRepo
	notifications *mockNotificationRepo
	quota         *mockQuota
}

func newFixture() *fixture {
	f := &fixture{
		requests:      &mockRequestRepo{},
		departments:   &mockDeptRepo{},
		users:         &mockUserRepo{},
		history:       &mockHistoryRepo{},
		notifications: &mockNotificationRepo{},
		quota:         &mockQuota{},
	}
	f.svc = NewRequestService(
		workflow.NewSmartEngine(workflow.DefaultSmartConfig()),
		f.requests, f.departments, f.users, f.history, f.notifications,
		f.quota, &mockTxManager{}, 5, &mockLogger{},
	)
	return f
}

func facultyRequest() *entity.TravelRequest {
	return &entity.TravelRequest{
		ID:                uuid.New(),
		RequestType:       entity.RequestTypeTravelOrder,
		RequestNumber:     "TO-2026-0042",
		RequesterID:       uuid.New(),
		SubmittedByUserID: uuid.New(),
		DepartmentID:      uuid.New(),
		HeadIncluded:      true,
		BudgetVersion:     1,
	}
}

func TestSubmit_FacultyStartsAtPendingHead(t *testing.T) {
	f := newFixture()
	req := facultyRequest()

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Validation.Valid)
	assert.Equal(t, wf.StatusPendingHead, req.Status)
	assert.Equal(t, wf.RoleHead, req.ActiveRole)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, entity.ActionSubmit, f.history.entries[0].Action)
	assert.Equal(t, wf.StatusDraft, f.history.entries[0].PreviousStatus)
	require.Len(t, f.notifications.intents, 1)
	assert.Equal(t, wf.RoleHead, f.notifications.intents[0].TargetRole)
}

func TestSubmit_HeadSkipsOwnStage(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.RequesterIsHead = true
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsHead: true, Position: wf.PositionHead}, nil
	}

	_, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, wf.StatusPendingAdmin, req.Status)
	assert.True(t, req.HeadApproval.Skipped)
	assert.Contains(t, req.SmartSkipsApplied, workflow.SkipTagHeadSelfRequest)
}

func TestSubmit_ValidationFailureReturnsViolations(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.HeadIncluded = false

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err, "validation failure is a result, not an error")

	assert.False(t, res.Validation.Valid)
	assert.NotEmpty(t, res.Validation.Errors)
	assert.Empty(t, f.history.entries, "nothing persisted on failed validation")
}

func TestSubmit_VehicleQuotaExhausted(t *testing.T) {
	f := newFixture()
	f.quota.count = 5
	req := facultyRequest()
	req.NeedsVehicle = true

	res, err := f.svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, res.Validation.Valid)
	require.Len(t, res.Validation.Errors, 1)
	assert.Contains(t, res.Validation.Errors[0], "limit of 5")
}

func TestSubmit_IdempotentByRequestNumber(t *testing.T) {
	f := newFixture()
	existing := facultyRequest()
	existing.Status = wf.StatusPendingAdmin
	f.requests.getByNumberFunc = func(ctx context.Context, number string) (*entity.TravelRequest, error) {
		return existing, nil
	}

	res, err := f.svc.Submit(context.Background(), facultyRequest())
	require.NoError(t, err)

	assert.Equal(t, existing, res.Request)
	assert.Empty(t, f.history.entries, "retried submission must not double-append history")
}

func TestAct_UnauthorizedWritesAuditEntry(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingHead
	req.ActiveRole = wf.RoleHead
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{Action: ActionApprove})
	require.Error(t, err)
	assert.ErrorIs(t, err, wf.ErrNotAuthorized)

	require.Len(t, f.history.entries, 1, "refused attempts are audited")
	assert.Equal(t, entity.ActionAuthFailure, f.history.entries[0].Action)
}

func TestAct_TerminalRequestRefused(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusApproved
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{Action: ActionApprove})
	assert.ErrorIs(t, err, wf.ErrTerminalStatus)
}

func TestAct_HeadApprovalAdvancesToAdmin(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingHead
	req.ActiveRole = wf.RoleHead
	head := uuid.New()
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		if id == head {
			return &entity.ApproverProfile{ID: id, IsHead: true}, nil
		}
		return &entity.ApproverProfile{ID: id, Position: wf.PositionFaculty}, nil
	}

	res, err := f.svc.Act(context.Background(), req.ID, head, ActionInput{
		Action:    ActionApprove,
		Comments:  "endorsed for processing",
		Signature: "sig-blob",
	})
	require.NoError(t, err)

	assert.Equal(t, wf.StatusPendingAdmin, req.Status)
	assert.Equal(t, wf.RoleAdmin, req.ActiveRole)
	assert.True(t, req.HeadApproval.Signed())
	assert.Equal(t, "sig-blob", req.HeadApproval.Signature)
	assert.Equal(t, wf.StatusPendingHead, res.PreviousStatus)
}

func TestAct_RejectIsTerminalWithAudit(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingAdmin
	req.ActiveRole = wf.RoleAdmin
	admin := uuid.New()
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsAdmin: true}, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, admin, ActionInput{
		Action:   ActionReject,
		Comments: "itinerary conflicts with the academic calendar",
	})
	require.NoError(t, err)

	assert.Equal(t, wf.StatusRejected, req.Status)
	assert.Equal(t, wf.StatusPendingAdmin, req.RejectedStage)
	assert.Equal(t, admin, req.RejectedBy)
	require.NotNil(t, req.RejectedAt)
	require.Len(t, f.notifications.intents, 1)
	assert.Equal(t, req.RequesterID, f.notifications.intents[0].TargetUser)
}

func TestAct_ComptrollerBudgetEditRoutesToHRAck(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingComptroller
	req.ActiveRole = wf.RoleComptroller
	req.RequiresBudget = true
	req.TotalBudget = decimal.NewFromInt(10000)
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsComptroller: true}, nil
	}

	edited := decimal.NewFromInt(8000)
	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{
		Action:             ActionApprove,
		Comments:           "reduced per diem to standard rate",
		BudgetModification: &edited,
	})
	require.NoError(t, err)

	assert.Equal(t, wf.StatusPendingHRAck, req.Status)
	assert.Equal(t, 2, req.BudgetVersion)
	assert.True(t, req.HRBudgetAckRequired)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, entity.ActionBudgetEdit, f.history.entries[0].Action)

	// One intent to the HR role for the next stage, one for the budget
	// acknowledgment itself.
	assert.Len(t, f.notifications.intents, 2)
}

func TestAct_PaymentConfirmationSubLoop(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingComptroller
	req.ActiveRole = wf.RoleComptroller
	req.RequiresBudget = true
	req.TotalBudget = decimal.NewFromInt(3000)
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		if id == req.RequesterID {
			return &entity.ApproverProfile{ID: id, Position: wf.PositionFaculty}, nil
		}
		return &entity.ApproverProfile{ID: id, IsComptroller: true}, nil
	}

	// Comptroller sends for payment confirmation: status holds, role
	// flips to requester.
	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{
		Action: ActionApprove,
		Params: workflow.ActionParams{SendForPaymentConfirmation: true},
	})
	require.NoError(t, err)
	assert.Equal(t, wf.StatusPendingComptroller, req.Status)
	assert.Equal(t, wf.RoleRequester, req.ActiveRole)

	// Requester confirms; routing advances to HR.
	_, err = f.svc.Act(context.Background(), req.ID, req.RequesterID, ActionInput{
		Action: ActionApprove,
		Params: workflow.ActionParams{SendForPaymentConfirmation: true, PaymentConfirmed: true},
	})
	require.NoError(t, err)
	assert.Equal(t, wf.StatusPendingHR, req.Status)
	assert.Equal(t, wf.RoleHR, req.ActiveRole)
}

func TestAct_HRApprovalSetsExecLevel(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingHR
	req.ActiveRole = wf.RoleHR
	req.RequiresBudget = true
	req.TotalBudget = decimal.NewFromInt(8000)
	req.ExecLevel = wf.ExecLevelVP
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		if id == req.RequesterID {
			return &entity.ApproverProfile{ID: id, Position: wf.PositionFaculty}, nil
		}
		return &entity.ApproverProfile{ID: id, IsHR: true}, nil
	}

	res, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{Action: ActionApprove})
	require.NoError(t, err)

	assert.Equal(t, wf.StatusPendingExec, req.Status)
	// Budget above the HR threshold overrides the seeded vp level.
	assert.Equal(t, wf.ExecLevelPresident, req.ExecLevel)
	assert.True(t, res.Decision.SkipVP)
}

func TestAct_ExecApprovalIsFinal(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingExec
	req.ActiveRole = wf.RoleExec
	req.ExecLevel = wf.ExecLevelVP
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsExec: true, ExecType: wf.ExecLevelVP}, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{Action: ActionApprove})
	require.NoError(t, err)

	assert.Equal(t, wf.StatusApproved, req.Status)
	require.NotNil(t, req.FinalApprovedAt)
	assert.Equal(t, wf.RoleNone, req.ActiveRole)
}

func TestAct_VPCannotApprovePresidentLevel(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingExec
	req.ActiveRole = wf.RoleExec
	req.ExecLevel = wf.ExecLevelPresident
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsExec: true, ExecType: wf.ExecLevelVP}, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{Action: ActionApprove})
	assert.ErrorIs(t, err, wf.ErrNotAuthorized)
}

func TestAct_ConcurrentModificationConflict(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingAdmin
	req.ActiveRole = wf.RoleAdmin
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.requests.updateFunc = func(ctx context.Context, r *entity.TravelRequest, expected wf.Status) (bool, error) {
		return false, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsAdmin: true}, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{Action: ActionApprove})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAct_ReturnToRequester(t *testing.T) {
	f := newFixture()
	req := facultyRequest()
	req.Status = wf.StatusPendingHead
	req.ActiveRole = wf.RoleHead
	f.requests.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.TravelRequest, error) {
		return req, nil
	}
	f.users.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*entity.ApproverProfile, error) {
		return &entity.ApproverProfile{ID: id, IsHead: true}, nil
	}

	_, err := f.svc.Act(context.Background(), req.ID, uuid.New(), ActionInput{
		Action:   ActionReturn,
		Comments: "please attach the seminar invitation",
	})
	require.NoError(t, err)

	assert.Equal(t, wf.StatusDraft, req.Status)
	assert.Equal(t, wf.RoleRequester, req.ActiveRole)
}
