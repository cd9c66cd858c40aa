package escalation

// Outcome of the per-turn routing decision.
const (
	OutcomeAutoReply = "auto_reply"
	OutcomeEscalate  = "escalate"
)

// Escalation reasons, in strict priority order. Once a signal fires, no
// lower-priority signal is consulted.
const (
	ReasonSafety               = "safety"
	ReasonUserRequested        = "user_requested"
	ReasonInvalidOutput        = "invalid_output"
	ReasonSevereSentiment      = "severe_sentiment"
	ReasonForbiddenCategory    = "forbidden_category"
	ReasonLowConfidenceExhaust = "low_confidence_exhausted"
	ReasonStateMachine         = "state_machine"
)

// ReasonDocumentHandoff marks the deferred escalation a knowledge-base
// document demands: the answer context is delivered first, then the turn
// hands off to an operator. Set by the orchestrator, not by Decide.
const ReasonDocumentHandoff = "document_handoff"

// ReasonPipelineFailure marks escalations forced by a critical node failure
// inside the execution graph (timeout or error). Also set outside Decide.
const ReasonPipelineFailure = "pipeline_failure"

// Signals is the read-only snapshot assembled fresh each turn. The decider
// never mutates it and never goes back to the pipeline for more data.
type Signals struct {
	SafetyViolation bool
	ExplicitRequest bool
	OutputInvalid   bool
	SentimentLabel  string
	SentimentScore  float64
	Category        string
	Confidence      float64
	AttemptCount    int
	DialogState     string
}

// Decision is the routing verdict for one turn.
type Decision struct {
	Outcome  string
	Reason   string
	Priority int
}

// Thresholds are configuration, never hardcoded call sites.
type Thresholds struct {
	// SentimentSeverity gates the severe-sentiment escalation.
	SentimentSeverity float64
	// Confidence below this value counts as a low-confidence turn.
	Confidence float64
	// MaxAttempts caps low-confidence retries before handing off.
	MaxAttempts int
	// ForbiddenCategories always escalate regardless of confidence.
	ForbiddenCategories []string
	// EscalateState is the dialog state label the rule engine uses to
	// demand a handoff.
	EscalateState string
}

// Decide arbitrates the signal bundle under fixed priority, first true
// wins. Pure function: same signals and thresholds, same decision.
func Decide(s Signals, t Thresholds) Decision {
	switch {
	case s.SafetyViolation:
		return Decision{OutcomeEscalate, ReasonSafety, 1}
	case s.ExplicitRequest:
		return Decision{OutcomeEscalate, ReasonUserRequested, 2}
	case s.OutputInvalid:
		return Decision{OutcomeEscalate, ReasonInvalidOutput, 3}
	case s.SentimentLabel == "angry" && s.SentimentScore >= t.SentimentSeverity:
		return Decision{OutcomeEscalate, ReasonSevereSentiment, 4}
	case contains(t.ForbiddenCategories, s.Category):
		return Decision{OutcomeEscalate, ReasonForbiddenCategory, 5}
	case s.Confidence < t.Confidence && s.AttemptCount >= t.MaxAttempts:
		return Decision{OutcomeEscalate, ReasonLowConfidenceExhaust, 6}
	case s.DialogState == t.EscalateState:
		return Decision{OutcomeEscalate, ReasonStateMachine, 7}
	default:
		return Decision{Outcome: OutcomeAutoReply, Priority: 8}
	}
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
