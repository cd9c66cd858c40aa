package dialog

import (
	"testing"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

func testRules() []Rule {
	return []Rule{
		{
			Name:     "operator_requested",
			Priority: 90,
			Conditions: []Condition{
				{Field: "explicit_handoff", Operator: OpEq, Value: true},
			},
			Actions: []Action{{Type: ActionSetState, Value: "ESCALATE"}},
		},
		{
			Name:     "stuck_loop",
			Priority: 80,
			Conditions: []Condition{
				{Field: "attempt_count", Operator: OpGte, Value: 3},
			},
			Actions: []Action{{Type: ActionSetState, Value: "STUCK_LOOP"}},
		},
		{
			Name:     "angry_user",
			Priority: 70,
			Conditions: []Condition{
				{Field: "sentiment_label", Operator: OpEq, Value: "angry"},
			},
			Actions: []Action{{Type: ActionSetState, Value: "EMPATHY_MODE"}},
		},
		{
			Name:     "low_confidence_retry",
			Priority: 60,
			Conditions: []Condition{
				{Field: "confidence", Operator: OpLt, Value: 0.5},
			},
			Actions: []Action{
				{Type: ActionSetState, Value: "LOW_CONFIDENCE"},
				{Type: ActionIncrementAttempts},
			},
		},
		{
			Name:     "resolved",
			Priority: 40,
			Conditions: []Condition{
				{Field: "intent", Operator: OpIn, Value: []interface{}{"gratitude", "goodbye"}},
			},
			Actions: []Action{
				{Type: ActionSetState, Value: "RESOLVED"},
				{Type: ActionResetAttempts},
			},
		},
	}
}

func newTestEngine(t *testing.T, rules []Rule) *Engine {
	t.Helper()
	e, err := NewEngine(rules, logger.Nop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestEvaluateFirstMatchByPriority(t *testing.T) {
	e := newTestEngine(t, testRules())

	tests := []struct {
		name      string
		signals   Signals
		wantRule  string
		wantState string
	}{
		{
			name: "higher priority wins over multiple matches",
			signals: Signals{
				"explicit_handoff": true,
				"sentiment_label":  "angry",
				"confidence":       0.2,
			},
			wantRule:  "operator_requested",
			wantState: "ESCALATE",
		},
		{
			name: "stuck loop at attempt threshold",
			signals: Signals{
				"attempt_count": 3,
				"confidence":    0.9,
			},
			wantRule:  "stuck_loop",
			wantState: "STUCK_LOOP",
		},
		{
			name: "angry beats low confidence",
			signals: Signals{
				"sentiment_label": "angry",
				"confidence":      0.1,
			},
			wantRule:  "angry_user",
			wantState: "EMPATHY_MODE",
		},
		{
			name: "membership operator",
			signals: Signals{
				"intent":     "gratitude",
				"confidence": 0.9,
			},
			wantRule:  "resolved",
			wantState: "RESOLVED",
		},
		{
			name:      "no match falls to synthesized catch-all",
			signals:   Signals{"confidence": 0.9},
			wantRule:  "catch_all",
			wantState: DefaultState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := e.Evaluate(tt.signals)
			if ev.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", ev.Rule, tt.wantRule)
			}
			if ev.State != tt.wantState {
				t.Errorf("State = %q, want %q", ev.State, tt.wantState)
			}
		})
	}
}

func TestEvaluateAttemptActions(t *testing.T) {
	e := newTestEngine(t, testRules())

	ev := e.Evaluate(Signals{"confidence": 0.3})
	if ev.Rule != "low_confidence_retry" {
		t.Fatalf("Rule = %q", ev.Rule)
	}
	if ev.AttemptDelta != 1 {
		t.Errorf("AttemptDelta = %d, want 1", ev.AttemptDelta)
	}

	ev = e.Evaluate(Signals{"intent": "goodbye"})
	if !ev.ResetAttempts {
		t.Error("resolved rule did not reset attempts")
	}
}

func TestConditionOperators(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		signals Signals
		want    bool
	}{
		{"eq numeric cross-type", Condition{Field: "n", Operator: OpEq, Value: 3.0}, Signals{"n": 3}, true},
		{"ne", Condition{Field: "s", Operator: OpNe, Value: "x"}, Signals{"s": "y"}, true},
		{"lt", Condition{Field: "n", Operator: OpLt, Value: 0.5}, Signals{"n": 0.49}, true},
		{"lte boundary", Condition{Field: "n", Operator: OpLte, Value: 0.5}, Signals{"n": 0.5}, true},
		{"gt false at boundary", Condition{Field: "n", Operator: OpGt, Value: 0.5}, Signals{"n": 0.5}, false},
		{"gte int against float", Condition{Field: "n", Operator: OpGte, Value: 3.0}, Signals{"n": 3}, true},
		{"in miss", Condition{Field: "s", Operator: OpIn, Value: []interface{}{"a", "b"}}, Signals{"s": "c"}, false},
		{"missing field never matches", Condition{Field: "gone", Operator: OpEq, Value: 1}, Signals{}, false},
		{"ordering on non-numeric fails closed", Condition{Field: "s", Operator: OpLt, Value: 1}, Signals{"s": "text"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.holds(tt.signals); got != tt.want {
				t.Errorf("holds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEngineRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{
			name: "unknown operator",
			rules: []Rule{{
				Name:       "bad",
				Conditions: []Condition{{Field: "x", Operator: "matches", Value: 1}},
			}},
		},
		{
			name: "set_state without label",
			rules: []Rule{{
				Name:    "bad",
				Actions: []Action{{Type: ActionSetState}},
			}},
		},
		{
			name: "unknown action",
			rules: []Rule{{
				Name:    "bad",
				Actions: []Action{{Type: "explode"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine(tt.rules, logger.Nop()); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEqualPrioritiesKeepDeclarationOrder(t *testing.T) {
	rules := []Rule{
		{
			Name:       "first",
			Priority:   10,
			Conditions: []Condition{{Field: "x", Operator: OpEq, Value: 1}},
			Actions:    []Action{{Type: ActionSetState, Value: "A"}},
		},
		{
			Name:       "second",
			Priority:   10,
			Conditions: []Condition{{Field: "x", Operator: OpEq, Value: 1}},
			Actions:    []Action{{Type: ActionSetState, Value: "B"}},
		},
	}
	e := newTestEngine(t, rules)

	ev := e.Evaluate(Signals{"x": 1})
	if ev.Rule != "first" {
		t.Errorf("Rule = %q, want first", ev.Rule)
	}
}
