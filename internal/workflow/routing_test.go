package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

func TestRouteAfterHead(t *testing.T) {
	chosen := uuid.New()

	tests := []struct {
		name       string
		params     ActionParams
		hasParent  bool
		wantStatus wf.Status
		wantRole   wf.Role
		wantChoice bool
	}{
		{
			name:       "return to requester",
			params:     ActionParams{ReturnToRequester: true},
			wantStatus: wf.StatusDraft,
			wantRole:   wf.RoleRequester,
		},
		{
			name:       "parent department requires a choice of parent heads",
			hasParent:  true,
			wantStatus: wf.StatusPendingParentHead,
			wantRole:   wf.RoleHead,
			wantChoice: true,
		},
		{
			name:       "no parent, no pre-selected admin",
			wantStatus: wf.StatusPendingAdmin,
			wantRole:   wf.RoleAdmin,
			wantChoice: true,
		},
		{
			name:       "no parent, admin pre-selected",
			params:     ActionParams{NextApproverID: &chosen},
			wantStatus: wf.StatusPendingAdmin,
			wantRole:   wf.RoleAdmin,
			wantChoice: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RouteAfterHead(tt.params, tt.hasParent)
			assert.Equal(t, tt.wantStatus, d.NextStatus)
			assert.Equal(t, tt.wantRole, d.NextRole)
			assert.Equal(t, tt.wantChoice, d.RequiresChoice)
		})
	}
}

func TestRouteAfterAdmin(t *testing.T) {
	d := RouteAfterAdmin(ActionParams{}, true)
	assert.Equal(t, wf.StatusPendingComptroller, d.NextStatus)
	assert.Equal(t, wf.RoleComptroller, d.NextRole)
	assert.True(t, d.RequiresChoice)

	d = RouteAfterAdmin(ActionParams{}, false)
	assert.Equal(t, wf.StatusPendingHR, d.NextStatus)
	assert.Equal(t, wf.RoleHR, d.NextRole)

	chosen := uuid.New()
	d = RouteAfterAdmin(ActionParams{NextApproverID: &chosen}, true)
	assert.False(t, d.RequiresChoice)
}

func TestRouteAfterComptroller_PaymentConfirmationSubLoop(t *testing.T) {
	// Payment confirmation keeps the status but hands the role to the
	// requester.
	d := RouteAfterComptroller(ActionParams{SendForPaymentConfirmation: true})
	assert.Equal(t, wf.StatusPendingComptroller, d.NextStatus)
	assert.Equal(t, wf.RoleRequester, d.NextRole)

	// Once confirmed, routing advances normally.
	d = RouteAfterComptroller(ActionParams{SendForPaymentConfirmation: true, PaymentConfirmed: true})
	assert.Equal(t, wf.StatusPendingHR, d.NextStatus)
	assert.Equal(t, wf.RoleHR, d.NextRole)

	d = RouteAfterComptroller(ActionParams{})
	assert.Equal(t, wf.StatusPendingHR, d.NextStatus)
}

func TestRouteAfterHR_PriorityOrder(t *testing.T) {
	threshold := decimal.NewFromInt(5000)

	tests := []struct {
		name     string
		ctx      HRRoutingContext
		wantSkip bool
	}{
		{
			name: "head requester goes to president",
			ctx: HRRoutingContext{
				RequesterIsHead: true,
				HeadIncluded:    true,
				TotalBudget:     decimal.NewFromInt(100),
				BudgetThreshold: threshold,
			},
			wantSkip: true,
		},
		{
			name: "director goes to president",
			ctx: HRRoutingContext{
				RequesterPosition: wf.PositionDirector,
				HeadIncluded:      true,
				BudgetThreshold:   threshold,
			},
			wantSkip: true,
		},
		{
			name: "dean goes to president",
			ctx: HRRoutingContext{
				RequesterPosition: wf.PositionDean,
				BudgetThreshold:   threshold,
			},
			wantSkip: true,
		},
		{
			name: "vp-capable parent head signer skips vp",
			ctx: HRRoutingContext{
				RequesterPosition:  wf.PositionFaculty,
				HeadIncluded:       true,
				ParentHeadSignerVP: true,
				TotalBudget:        decimal.NewFromInt(100),
				BudgetThreshold:    threshold,
			},
			wantSkip: true,
		},
		{
			name: "budget at threshold goes to president",
			ctx: HRRoutingContext{
				RequesterPosition: wf.PositionFaculty,
				HeadIncluded:      true,
				TotalBudget:       decimal.NewFromInt(5000),
				BudgetThreshold:   threshold,
			},
			wantSkip: true,
		},
		{
			name: "faculty with head included below threshold goes to vp",
			ctx: HRRoutingContext{
				RequesterPosition: wf.PositionFaculty,
				HeadIncluded:      true,
				TotalBudget:       decimal.NewFromInt(4999),
				BudgetThreshold:   threshold,
			},
			wantSkip: false,
		},
		{
			name: "faculty alone still defaults to vp",
			ctx: HRRoutingContext{
				RequesterPosition: wf.PositionFaculty,
				BudgetThreshold:   threshold,
			},
			wantSkip: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RouteAfterHR(tt.ctx)
			assert.Equal(t, wf.StatusPendingExec, d.NextStatus)
			assert.Equal(t, wf.RoleExec, d.NextRole)
			assert.Equal(t, tt.wantSkip, d.SkipVP)
			if tt.wantSkip {
				assert.Equal(t, wf.ExecLevelPresident, ExecRoleFor(d))
				assert.NotEmpty(t, d.Annotations)
			} else {
				assert.Equal(t, wf.ExecLevelVP, ExecRoleFor(d))
			}
		})
	}
}

func TestRouteAfterExec_Terminal(t *testing.T) {
	d := RouteAfterExec()
	assert.Equal(t, wf.StatusApproved, d.NextStatus)
	assert.Equal(t, wf.RoleNone, d.NextRole)
}

func TestResolveParentChain_CycleGuard(t *testing.T) {
	a := &entity.Department{ID: uuid.New()}
	b := &entity.Department{ID: uuid.New()}
	// a -> b -> a cycle.
	a.ParentDepartmentID = &b.ID
	b.ParentDepartmentID = &a.ID

	depts := map[uuid.UUID]*entity.Department{a.ID: a, b.ID: b}
	lookup := func(id uuid.UUID) *entity.Department { return depts[id] }

	chain := ResolveParentChain(a, lookup)
	assert.Len(t, chain, 1, "cycle must terminate after the first repeat")
	assert.Equal(t, b.ID, chain[0].ID)
}

func TestResolveParentChain_SingleHop(t *testing.T) {
	parent := &entity.Department{ID: uuid.New()}
	office := &entity.Department{ID: uuid.New(), ParentDepartmentID: &parent.ID}

	depts := map[uuid.UUID]*entity.Department{parent.ID: parent, office.ID: office}
	chain := ResolveParentChain(office, func(id uuid.UUID) *entity.Department { return depts[id] })

	assert.Len(t, chain, 1)
	assert.Equal(t, parent.ID, chain[0].ID)

	assert.Empty(t, ResolveParentChain(parent, func(uuid.UUID) *entity.Department { return nil }))
}
