package workflow

// Role identifies which kind of actor must act on a request at a given stage
type Role string

const (
	RoleRequester   Role = "requester"
	RoleHead        Role = "head"
	RoleParentHead  Role = "parent_head"
	RoleAdmin       Role = "admin"
	RoleComptroller Role = "comptroller"
	RoleHR          Role = "hr"
	RoleExec        Role = "exec"
	RoleNone        Role = ""
)

// ExecLevel distinguishes which executive signature a request requires
type ExecLevel string

const (
	ExecLevelVP          ExecLevel = "vp"
	ExecLevelPresident   ExecLevel = "president"
	ExecLevelAutoApprove ExecLevel = "auto_approve"
)

// ParentRouting records whether a request stays within its own office
// or climbs to the parent department for a second head signature
type ParentRouting string

const (
	RoutingOwnOffice  ParentRouting = "own_office"
	RoutingParentDept ParentRouting = "parent_dept"
)

// Position is the requester's seniority classification. Director and
// dean requests bypass the VP the same way head requests do.
type Position string

const (
	PositionFaculty   Position = "faculty"
	PositionHead      Position = "head"
	PositionDirector  Position = "director"
	PositionDean      Position = "dean"
	PositionVP        Position = "vp"
	PositionPresident Position = "president"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// String returns the string representation of the exec level
func (e ExecLevel) String() string {
	return string(e)
}
