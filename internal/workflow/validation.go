package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
)

// ValidationResult aggregates every business-rule violation found
// before submission. Validation never short-circuits: the caller needs
// the full list to show the user at once.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidationContext carries the facts the submission gate needs beyond
// the request itself
type ValidationContext struct {
	// DepartmentRemaining is the department's remaining budget
	DepartmentRemaining decimal.Decimal
	// VehicleRequestsToday counts today's prior vehicle-requiring
	// submissions. Only vehicle-requiring requests count against the
	// quota.
	VehicleRequestsToday int
	// VehicleDailyQuota is the daily cap on vehicle-requiring requests
	VehicleDailyQuota int
}

// ValidateSubmission runs the pre-submission business rules:
//
//   - a non-head requester must include their department head as a
//     participant
//   - vehicle-requiring requests are capped per day; requests without a
//     vehicle are unlimited
//   - a budgeted request may not exceed the department's remaining budget
func ValidateSubmission(req *entity.TravelRequest, ctx ValidationContext) ValidationResult {
	var errs []string

	if !req.RequesterIsHead && !req.HeadIncluded {
		errs = append(errs, "department head must be included as a participant for faculty requests")
	}

	if req.NeedsVehicle && ctx.VehicleRequestsToday >= ctx.VehicleDailyQuota {
		errs = append(errs, fmt.Sprintf("daily vehicle request limit of %d reached; submit without a vehicle or try again tomorrow",
			ctx.VehicleDailyQuota))
	}

	if req.RequiresBudget && req.TotalBudget.GreaterThan(decimal.Zero) {
		if req.TotalBudget.GreaterThan(ctx.DepartmentRemaining) {
			errs = append(errs, fmt.Sprintf("requested budget %s exceeds remaining department budget %s",
				FormatCurrency(req.TotalBudget), FormatCurrency(ctx.DepartmentRemaining)))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
