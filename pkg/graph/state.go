package graph

// Field keys of the per-turn pipeline state. Each field is produced by
// exactly one node (or supplied at entry) but may be read by many.
const (
	FieldQuestion       = "question"
	FieldLanguage       = "language"
	FieldConversationID = "conversation_id"
	FieldTurnID         = "turn_id"
	FieldUserID         = "user_id"

	FieldIntent            = "intent"
	FieldCategory          = "category"
	FieldConfidence        = "confidence"
	FieldSentimentLabel    = "sentiment_label"
	FieldSentimentScore    = "sentiment_score"
	FieldSafetyViolation   = "safety_violation"
	FieldExplicitHandoff   = "explicit_handoff"
	FieldVectorDocs        = "vector_docs"
	FieldLexicalDocs       = "lexical_docs"
	FieldDocs              = "docs"
	FieldDialogState       = "dialog_state"
	FieldAttemptCount      = "attempt_count"
	FieldClarification     = "clarification"
	FieldClarifyReply      = "clarify_reply"
	FieldClarifyAnswers    = "clarify_answers"
	FieldAnswer            = "answer"
	FieldAnswerValid       = "answer_valid"
	FieldEscalation        = "escalation"
	FieldDeferredEscalate  = "deferred_escalate"
)

// State is the mutable-by-merge bag of typed fields for one turn. Nodes
// receive a filtered read-only view and return deltas; only the executor
// writes through the reducer table.
type State map[string]interface{}

// Delta is the partial state a node contributes for one turn.
type Delta map[string]interface{}

// Clone returns a shallow copy. Deltas always replace field values whole, so
// a shallow copy is enough to isolate a view from later merges.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// view returns the subset of the state a node declared as input.
func (s State) view(fields []string) State {
	out := make(State, len(fields))
	for _, f := range fields {
		if v, ok := s[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Has reports whether the field carries a value.
func (s State) Has(field string) bool {
	v, ok := s[field]
	return ok && v != nil
}

// String returns the field as a string, or "" when absent or mistyped.
func (s State) String(field string) string {
	if v, ok := s[field].(string); ok {
		return v
	}
	return ""
}

// Float returns the field as a float64, accepting ints for convenience.
func (s State) Float(field string) float64 {
	switch v := s[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Int returns the field as an int.
func (s State) Int(field string) int {
	switch v := s[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Bool returns the field as a bool.
func (s State) Bool(field string) bool {
	if v, ok := s[field].(bool); ok {
		return v
	}
	return false
}
