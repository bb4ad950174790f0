package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validContext() ValidationContext {
	return ValidationContext{
		DepartmentRemaining:  decimal.NewFromInt(100000),
		VehicleRequestsToday: 0,
		VehicleDailyQuota:    5,
	}
}

func TestValidateSubmission_Valid(t *testing.T) {
	req := newTestRequest()
	req.HeadIncluded = true

	res := ValidateSubmission(req, validContext())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateSubmission_FacultyWithoutHead(t *testing.T) {
	req := newTestRequest()
	req.HeadIncluded = false

	res := ValidateSubmission(req, validContext())
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "department head must be included")
}

func TestValidateSubmission_HeadRequesterNeedsNoHeadParticipant(t *testing.T) {
	req := newTestRequest()
	req.RequesterIsHead = true
	req.HeadIncluded = false

	res := ValidateSubmission(req, validContext())
	assert.True(t, res.Valid)
}

func TestValidateSubmission_VehicleQuota(t *testing.T) {
	req := newTestRequest()
	req.HeadIncluded = true
	req.NeedsVehicle = true

	ctx := validContext()
	ctx.VehicleRequestsToday = 5

	res := ValidateSubmission(req, ctx)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "limit of 5")

	// A sixth submission without a vehicle is unlimited.
	req.NeedsVehicle = false
	res = ValidateSubmission(req, ctx)
	assert.True(t, res.Valid)
}

func TestValidateSubmission_BudgetExceedsDepartment(t *testing.T) {
	req := newTestRequest()
	req.HeadIncluded = true
	req.RequiresBudget = true
	req.TotalBudget = decimal.NewFromInt(15000)

	ctx := validContext()
	ctx.DepartmentRemaining = decimal.NewFromInt(10000)

	res := ValidateSubmission(req, ctx)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "₱15,000.00")
	assert.Contains(t, res.Errors[0], "₱10,000.00")
}

func TestValidateSubmission_AccumulatesAllViolations(t *testing.T) {
	req := newTestRequest()
	req.HeadIncluded = false
	req.NeedsVehicle = true
	req.RequiresBudget = true
	req.TotalBudget = decimal.NewFromInt(99999)

	ctx := ValidationContext{
		DepartmentRemaining:  decimal.NewFromInt(500),
		VehicleRequestsToday: 7,
		VehicleDailyQuota:    5,
	}

	res := ValidateSubmission(req, ctx)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 3, "validation must report every violation, not just the first")
}

func TestValidateSubmission_ZeroBudgetSkipsBudgetRule(t *testing.T) {
	req := newTestRequest()
	req.HeadIncluded = true
	req.RequiresBudget = true
	req.TotalBudget = decimal.Zero

	ctx := validContext()
	ctx.DepartmentRemaining = decimal.Zero

	res := ValidateSubmission(req, ctx)
	assert.True(t, res.Valid)
}
