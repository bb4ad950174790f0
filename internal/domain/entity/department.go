package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Department is a read-only organizational record supplied by the
// directory collaborator. A non-nil ParentDepartmentID routes the
// request through a second head signature.
type Department struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	ParentDepartmentID *uuid.UUID      `json:"parent_department_id,omitempty"`
	HeadUserID         uuid.UUID       `json:"head_user_id"`
	RemainingBudget    decimal.Decimal `json:"remaining_budget"`
}

// HasParent reports whether the department sits under a parent department
func (d *Department) HasParent() bool {
	return d.ParentDepartmentID != nil
}
