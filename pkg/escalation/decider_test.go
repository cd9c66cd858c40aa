package escalation

import "testing"

func defaultThresholds() Thresholds {
	return Thresholds{
		SentimentSeverity:   0.8,
		Confidence:          0.5,
		MaxAttempts:         2,
		ForbiddenCategories: []string{"legal", "refund"},
		EscalateState:       "ESCALATE",
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		signals      Signals
		wantOutcome  string
		wantReason   string
		wantPriority int
	}{
		{
			name:         "clean turn auto-replies",
			signals:      Signals{Confidence: 0.9, SentimentLabel: "neutral"},
			wantOutcome:  OutcomeAutoReply,
			wantPriority: 8,
		},
		{
			name: "safety beats everything",
			signals: Signals{
				SafetyViolation: true,
				ExplicitRequest: true,
				OutputInvalid:   true,
				SentimentLabel:  "angry",
				SentimentScore:  1.0,
				Category:        "legal",
			},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonSafety,
			wantPriority: 1,
		},
		{
			name: "explicit request beats invalid output",
			signals: Signals{
				ExplicitRequest: true,
				OutputInvalid:   true,
			},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonUserRequested,
			wantPriority: 2,
		},
		{
			name:         "invalid output",
			signals:      Signals{OutputInvalid: true, Confidence: 0.9},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonInvalidOutput,
			wantPriority: 3,
		},
		{
			name: "severe sentiment at threshold",
			signals: Signals{
				SentimentLabel: "angry",
				SentimentScore: 0.8,
				Confidence:     0.9,
			},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonSevereSentiment,
			wantPriority: 4,
		},
		{
			name: "angry below severity does not escalate",
			signals: Signals{
				SentimentLabel: "angry",
				SentimentScore: 0.79,
				Confidence:     0.9,
			},
			wantOutcome:  OutcomeAutoReply,
			wantPriority: 8,
		},
		{
			name: "non-angry label never severe",
			signals: Signals{
				SentimentLabel: "frustrated",
				SentimentScore: 0.99,
				Confidence:     0.9,
			},
			wantOutcome:  OutcomeAutoReply,
			wantPriority: 8,
		},
		{
			name:         "forbidden category",
			signals:      Signals{Category: "refund", Confidence: 0.95},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonForbiddenCategory,
			wantPriority: 5,
		},
		{
			name:         "low confidence only escalates after retries",
			signals:      Signals{Confidence: 0.2, AttemptCount: 1},
			wantOutcome:  OutcomeAutoReply,
			wantPriority: 8,
		},
		{
			name:         "low confidence exhausted",
			signals:      Signals{Confidence: 0.2, AttemptCount: 2},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonLowConfidenceExhaust,
			wantPriority: 6,
		},
		{
			name:         "state machine demands handoff",
			signals:      Signals{Confidence: 0.9, DialogState: "ESCALATE"},
			wantOutcome:  OutcomeEscalate,
			wantReason:   ReasonStateMachine,
			wantPriority: 7,
		},
		{
			name:         "empty category never forbidden",
			signals:      Signals{Category: "", Confidence: 0.9},
			wantOutcome:  OutcomeAutoReply,
			wantPriority: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.signals, defaultThresholds())
			if got.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", got.Outcome, tt.wantOutcome)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Priority != tt.wantPriority {
				t.Errorf("Priority = %d, want %d", got.Priority, tt.wantPriority)
			}
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	s := Signals{
		SentimentLabel: "angry",
		SentimentScore: 0.85,
		Confidence:     0.3,
		AttemptCount:   3,
	}
	first := Decide(s, defaultThresholds())
	for i := 0; i < 5; i++ {
		if Decide(s, defaultThresholds()) != first {
			t.Fatal("identical signals produced different decisions")
		}
	}
}
