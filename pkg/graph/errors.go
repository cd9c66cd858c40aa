package graph

import (
	"errors"
	"fmt"
)

// ErrNodeTimeout marks a node that exceeded its per-node deadline.
var ErrNodeTimeout = errors.New("node timeout")

// ErrUndeclaredOutput marks a node that produced a field outside its
// declared contract. The field set of the pipeline state is closed; a node
// writing outside it fails (the node, not the turn).
var ErrUndeclaredOutput = errors.New("undeclared output field")

// NodeError wraps a failure inside a node run. Non-critical node errors are
// swallowed into an empty delta; critical ones abort the turn to the
// escalation terminal.
type NodeError struct {
	Node     string
	Critical bool
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// PlanValidationError is returned at build/reload time when a plan
// declaration is inconsistent. It is fatal to the reload, never to an
// in-flight turn.
type PlanValidationError struct {
	Reason string
}

func (e *PlanValidationError) Error() string {
	return "invalid plan: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &PlanValidationError{Reason: fmt.Sprintf(format, args...)}
}
