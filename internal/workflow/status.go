// Package workflow holds the cycle lifecycle rules: which status transitions
// exist, which role may trigger each, and how raw QC results map onto the
// next status. Everything here is pure; persistence lives in the services.
package workflow

// CycleStatus is the position of a cycle in the assembly lifecycle.
type CycleStatus string

const (
	StatusPending          CycleStatus = "pending"
	StatusAssigned         CycleStatus = "assigned"
	StatusInProgress       CycleStatus = "in_progress"
	StatusQCPending        CycleStatus = "qc_pending"
	StatusQCPassed         CycleStatus = "qc_passed"
	StatusQCFailed         CycleStatus = "qc_failed"
	StatusReadyForDispatch CycleStatus = "ready_for_dispatch"
	StatusDispatched       CycleStatus = "dispatched"
)

// CycleStatuses lists every status, in lifecycle order.
var CycleStatuses = []CycleStatus{
	StatusPending, StatusAssigned, StatusInProgress, StatusQCPending,
	StatusQCPassed, StatusQCFailed, StatusReadyForDispatch, StatusDispatched,
}

// Terminal reports whether no transition may ever leave s.
func (s CycleStatus) Terminal() bool { return s == StatusDispatched }

// AssignmentStatus is the state of one technician's work attempt on a cycle.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentReassigned AssignmentStatus = "reassigned"
)

// Active reports whether the assignment still holds the cycle; a cycle may
// have at most one active assignment.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentPending || s == AssignmentInProgress
}

// Priority of a cycle. Advisory ordering hint only; never gates transitions.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type edge struct {
	from, to CycleStatus
}

// transitions is the full directed graph of allowed status changes and the
// roles permitted to trigger each edge. RoleSystem marks the one automatic
// edge, fired by the QC workflow itself rather than a user.
var transitions = map[edge][]Role{
	{StatusPending, StatusAssigned}:            {RoleSupervisor, RoleAdmin},
	{StatusAssigned, StatusInProgress}:         {RoleTechnician},
	{StatusInProgress, StatusQCPending}:        {RoleTechnician},
	{StatusQCPending, StatusQCPassed}:          {RoleQC, RoleAdmin},
	{StatusQCPending, StatusQCFailed}:          {RoleQC, RoleAdmin},
	{StatusQCFailed, StatusQCPassed}:           {RoleAdmin},
	{StatusQCFailed, StatusQCFailed}:           {RoleAdmin},
	{StatusQCPassed, StatusReadyForDispatch}:   {RoleSystem},
	{StatusReadyForDispatch, StatusDispatched}: {RoleSales, RoleAdmin},
}

// ValidateTransition checks that moving a cycle from one status to another is
// an edge of the lifecycle graph and that the acting role may trigger it.
// It is side-effect free; callers persist the change only on nil.
func ValidateTransition(from, to CycleStatus, actor Role) error {
	if from.Terminal() {
		return &TransitionError{Kind: ErrTerminalState, From: from, To: to, Actor: actor}
	}
	allowed, ok := transitions[edge{from, to}]
	if !ok {
		return &TransitionError{Kind: ErrInvalidTransition, From: from, To: to, Actor: actor}
	}
	for _, r := range allowed {
		if r == actor {
			return nil
		}
	}
	return &TransitionError{Kind: ErrUnauthorizedRole, From: from, To: to, Actor: actor}
}
