package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

func TestReducerMerge(t *testing.T) {
	tests := []struct {
		name     string
		reducers map[string]string
		state    State
		delta    Delta
		want     State
	}{
		{
			name:  "overwrite is the default",
			state: State{"answer": "old"},
			delta: Delta{"answer": "new"},
			want:  State{"answer": "new"},
		},
		{
			name:     "overwrite replaces a larger counter with a smaller one",
			reducers: map[string]string{"attempt_count": "overwrite"},
			state:    State{"attempt_count": 3},
			delta:    Delta{"attempt_count": 0},
			want:     State{"attempt_count": 0},
		},
		{
			name:     "keep-latest-non-null ignores nil",
			reducers: map[string]string{"docs": "keep-latest-non-null"},
			state:    State{"docs": "kept"},
			delta:    Delta{"docs": nil},
			want:     State{"docs": "kept"},
		},
		{
			name:     "keep-latest-non-null takes a non-nil value",
			reducers: map[string]string{"docs": "keep-latest-non-null"},
			state:    State{"docs": "old"},
			delta:    Delta{"docs": "new"},
			want:     State{"docs": "new"},
		},
		{
			name:     "append-unique merges with set semantics",
			reducers: map[string]string{"tags": "append-unique"},
			state:    State{"tags": []string{"a", "b"}},
			delta:    Delta{"tags": []string{"b", "c"}},
			want:     State{"tags": []string{"a", "b", "c"}},
		},
		{
			name:     "append-unique keeps current on a non-slice value",
			reducers: map[string]string{"tags": "append-unique"},
			state:    State{"tags": []string{"a"}},
			delta:    Delta{"tags": 7},
			want:     State{"tags": []string{"a"}},
		},
		{
			name:     "sum adds counters",
			reducers: map[string]string{"hits": "sum"},
			state:    State{"hits": 2},
			delta:    Delta{"hits": 3},
			want:     State{"hits": float64(5)},
		},
		{
			name:     "max keeps the larger value",
			reducers: map[string]string{"score": "max"},
			state:    State{"score": 0.9},
			delta:    Delta{"score": 0.4},
			want:     State{"score": 0.9},
		},
		{
			name:     "max swallows a reset to zero",
			reducers: map[string]string{"attempt_count": "max"},
			state:    State{"attempt_count": 3},
			delta:    Delta{"attempt_count": 0},
			want:     State{"attempt_count": float64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := BuildReducerTable(tt.reducers)
			if err != nil {
				t.Fatalf("BuildReducerTable failed: %v", err)
			}
			table.merge(tt.state, tt.delta)
			if !reflect.DeepEqual(tt.state, tt.want) {
				t.Errorf("merged state = %v, want %v", tt.state, tt.want)
			}
		})
	}
}

func TestBuildReducerTableRejectsUnknownName(t *testing.T) {
	if _, err := BuildReducerTable(map[string]string{"x": "median"}); err == nil {
		t.Error("expected an error for an unknown reducer name")
	}
}

// A dialog transition that resets the attempt counter must survive the join:
// the counter field may not use a monotonic reducer when its producer can
// legitimately lower it.
func TestRunAppliesCounterReset(t *testing.T) {
	def := Definition{
		EntryFields: []string{FieldQuestion, FieldAttemptCount},
		Stages:      [][]string{{"rules"}},
		Nodes:       []NodeDecl{{Name: "rules"}},
	}
	rules := staticNode("rules", []string{FieldAttemptCount}, []string{FieldAttemptCount, FieldDialogState},
		Delta{FieldAttemptCount: 0, FieldDialogState: "RESOLVED"})

	plan := buildTestPlan(t, def, rules)
	exec := NewExecutor(plan, logger.Nop())

	res, err := exec.Run(context.Background(), State{FieldQuestion: "q", FieldAttemptCount: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := res.State.Int(FieldAttemptCount); got != 0 {
		t.Errorf("attempt_count after reset = %d, want 0", got)
	}
}
