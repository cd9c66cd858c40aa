package dialog

import "fmt"

// Condition is one field/operator/value triple. All conditions of a rule
// must hold (AND) for the rule to match.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Supported condition operators.
const (
	OpEq  = "eq"
	OpNe  = "ne"
	OpLt  = "lt"
	OpLte = "lte"
	OpGt  = "gt"
	OpGte = "gte"
	OpIn  = "in"
)

// Action is a rule effect. set_state carries the target label in Value;
// the attempt-counter actions carry none.
type Action struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// Action types.
const (
	ActionSetState          = "set_state"
	ActionIncrementAttempts = "increment_attempts"
	ActionResetAttempts     = "reset_attempts"
)

// Rule is one declarative dialog rule. Rules are data, loaded from the
// pipeline config file; state labels are opaque to the engine.
type Rule struct {
	Name       string      `json:"name"`
	Priority   int         `json:"priority"`
	Conditions []Condition `json:"conditions"`
	Actions    []Action    `json:"actions"`
}

func (c Condition) validate() error {
	switch c.Operator {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn:
	default:
		return fmt.Errorf("rule condition on %s: unknown operator %q", c.Field, c.Operator)
	}
	if c.Field == "" {
		return fmt.Errorf("rule condition with empty field")
	}
	return nil
}

func (a Action) validate() error {
	switch a.Type {
	case ActionSetState:
		if a.Value == "" {
			return fmt.Errorf("set_state action without a state label")
		}
	case ActionIncrementAttempts, ActionResetAttempts:
	default:
		return fmt.Errorf("unknown rule action %q", a.Type)
	}
	return nil
}
