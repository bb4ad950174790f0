package workflow

import "errors"

var (
	// ErrUnknownStatus is returned when a status outside the closed set
	// reaches a transition function. Routing is never defaulted: a
	// misrouted institutional approval is worse than a refused one.
	ErrUnknownStatus = errors.New("unknown request status")

	// ErrTerminalStatus is returned when a transition is attempted on an
	// approved, rejected or cancelled request
	ErrTerminalStatus = errors.New("request is in a terminal status")

	// ErrNotAuthorized is returned when the acting user lacks the
	// capability required by the current stage
	ErrNotAuthorized = errors.New("not authorized for this stage")

	// ErrMissingDepartment is returned when parent-department routing is
	// required but no department record was supplied
	ErrMissingDepartment = errors.New("department record required for routing")
)
