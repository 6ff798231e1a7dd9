package services

import "errors"

// Workflow and calculator error taxonomy. Controllers map these onto
// distinct HTTP responses; they are never collapsed into a generic 400.
var (
	// ErrNotFound means no such submission or policy exists.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidStateTransition means the current status does not permit
	// the requested transition, including the case where a concurrent
	// actor moved the submission first.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrAlreadyTerminal means the submission is in a terminal state and
	// accepts no further actor-driven transitions.
	ErrAlreadyTerminal = errors.New("submission already in terminal state")

	// ErrPermissionDenied means the actor lacks the capability or school
	// assignment the transition requires.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoApplicablePolicy means no active policy window covers the
	// submission's reference date. The workflow recovers from this by
	// attaching a zero result flagged policy_missing.
	ErrNoApplicablePolicy = errors.New("no applicable incentive policy")

	// ErrInvalidAuthorList means the author list is malformed: empty, no
	// author at position 1, or duplicate positions.
	ErrInvalidAuthorList = errors.New("invalid author list")

	// ErrResultExists means an incentive result is already attached and
	// must be explicitly cleared before recomputation.
	ErrResultExists = errors.New("incentive result already exists")

	// ErrPolicyOverlap means a policy write would create two active
	// policies whose effective windows both cover some date in one scope.
	ErrPolicyOverlap = errors.New("policy effective window overlaps an active policy")
)
