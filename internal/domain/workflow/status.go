package workflow

// Status represents a pipeline stage in the request approval lifecycle
type Status string

const (
	StatusDraft              Status = "draft"
	StatusPendingHead        Status = "pending_head"
	StatusPendingParentHead  Status = "pending_parent_head"
	StatusPendingAdmin       Status = "pending_admin"
	StatusPendingComptroller Status = "pending_comptroller"
	StatusPendingHR          Status = "pending_hr"
	StatusPendingHRAck       Status = "pending_hr_ack"
	StatusPendingExec        Status = "pending_exec"
	StatusApproved           Status = "approved"
	StatusRejected           Status = "rejected"
	StatusCancelled          Status = "cancelled"
)

// statusOrder assigns every valid status an ordinal used for
// "is this stage already past" comparisons. The three terminal
// statuses share the tail of the ordering.
var statusOrder = map[Status]int{
	StatusDraft:              0,
	StatusPendingHead:        1,
	StatusPendingParentHead:  2,
	StatusPendingAdmin:       3,
	StatusPendingComptroller: 4,
	StatusPendingHR:          5,
	StatusPendingHRAck:       6,
	StatusPendingExec:        7,
	StatusApproved:           8,
	StatusRejected:           9,
	StatusCancelled:          10,
}

var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCancelled: true,
}

// CanonicalStageOrder is the linear walk the smart engine advances
// through. pending_parent_head and pending_hr_ack are conditional
// detours, not members of the walk.
var CanonicalStageOrder = []Status{
	StatusPendingHead,
	StatusPendingAdmin,
	StatusPendingComptroller,
	StatusPendingHR,
	StatusPendingExec,
	StatusApproved,
}

// IsValid returns true if the status is a member of the closed status set
func (s Status) IsValid() bool {
	_, ok := statusOrder[s]
	return ok
}

// IsTerminal returns true if the status permits no further transitions
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// IsPending returns true for the stages that wait on an approver action
func (s Status) IsPending() bool {
	return s.IsValid() && !s.IsTerminal() && s != StatusDraft
}

// Order returns the ordinal of the status within the pipeline.
// Invalid statuses order as -1.
func (s Status) Order() int {
	ord, ok := statusOrder[s]
	if !ok {
		return -1
	}
	return ord
}

// Before reports whether s comes earlier in the pipeline than other
func (s Status) Before(other Status) bool {
	return s.Order() < other.Order()
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
