package dialog

import (
	"fmt"
	"sort"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

// Signals is the evaluation input: a flat bag of the per-turn measurements
// the rules condition on (confidence, sentiment, attempt_count, intent, ...).
type Signals map[string]interface{}

// Evaluation is the outcome of one rule pass.
type Evaluation struct {
	// State is the dialog state label the matched rule set.
	State string
	// Rule names the matched rule, for logging and events.
	Rule string
	// AttemptDelta is +1 for increment_attempts, 0 otherwise.
	AttemptDelta int
	// ResetAttempts clears the session counter (e.g. gratitude/resolution).
	ResetAttempts bool
}

// Engine walks a priority-sorted rule list and applies the first rule whose
// conditions all hold. The engine knows nothing about state labels; rules
// and labels are data, so extending the dialog machine never touches this
// code.
type Engine struct {
	rules []Rule
	log   logger.ILogger
}

// DefaultState is what the built-in catch-all falls back to when a rule set
// carries no match (signals they never cover).
const DefaultState = "INITIAL"

// NewEngine validates and sorts the rule set once. A catch-all rule with no
// conditions and priority 0 is appended when the set lacks one, so
// evaluation always matches.
func NewEngine(rules []Rule, log logger.ILogger) (*Engine, error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)

	hasCatchAll := false
	for _, r := range sorted {
		for _, c := range r.Conditions {
			if err := c.validate(); err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Name, err)
			}
		}
		for _, a := range r.Actions {
			if err := a.validate(); err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Name, err)
			}
		}
		if len(r.Conditions) == 0 {
			hasCatchAll = true
		}
	}
	if !hasCatchAll {
		sorted = append(sorted, Rule{
			Name:     "catch_all",
			Priority: 0,
			Actions:  []Action{{Type: ActionSetState, Value: DefaultState}},
		})
	}

	// Descending priority; stable so equal priorities keep file order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	return &Engine{rules: sorted, log: log}, nil
}

// Evaluate applies the first matching rule. First match wins; later rules
// are never consulted.
func (e *Engine) Evaluate(signals Signals) Evaluation {
	for _, rule := range e.rules {
		if !matches(rule, signals) {
			continue
		}
		ev := Evaluation{Rule: rule.Name, State: DefaultState}
		for _, a := range rule.Actions {
			switch a.Type {
			case ActionSetState:
				ev.State = a.Value
			case ActionIncrementAttempts:
				ev.AttemptDelta = 1
			case ActionResetAttempts:
				ev.ResetAttempts = true
			}
		}
		e.log.Debug("dialog", "rule matched", map[string]interface{}{
			"rule":  rule.Name,
			"state": ev.State,
		})
		return ev
	}
	// Unreachable: NewEngine guarantees a catch-all.
	return Evaluation{State: DefaultState}
}

func matches(rule Rule, signals Signals) bool {
	for _, c := range rule.Conditions {
		if !c.holds(signals) {
			return false
		}
	}
	return true
}

func (c Condition) holds(signals Signals) bool {
	actual, ok := signals[c.Field]
	if !ok {
		return false
	}
	switch c.Operator {
	case OpEq:
		return equal(actual, c.Value)
	case OpNe:
		return !equal(actual, c.Value)
	case OpLt, OpLte, OpGt, OpGte:
		a, aok := toFloat(actual)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case OpLt:
			return a < b
		case OpLte:
			return a <= b
		case OpGt:
			return a > b
		default:
			return a >= b
		}
	case OpIn:
		set, ok := c.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range set {
			if equal(actual, v) {
				return true
			}
		}
		return false
	}
	return false
}

func equal(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
