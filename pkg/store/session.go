package store

import "time"

// Document represents a knowledge-base article retrieved for a question.
type Document struct {
	ID                  string                 `json:"id"`
	Title               string                 `json:"title"`
	Content             string                 `json:"content"`
	Category            string                 `json:"category"`
	Score               float32                `json:"score"`
	ClarifyingQuestions []string               `json:"clarifying_questions,omitempty"`
	RequiresHandoff     bool                   `json:"requires_handoff,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// ClarificationContext tracks an in-progress multi-turn disambiguation.
// While Active, retrieval is bypassed and the user's messages are collected
// verbatim as answers to the pending questions, one per turn.
type ClarificationContext struct {
	Active          bool              `json:"active"`
	Question        string            `json:"question"` // the turn that triggered the flow
	Questions       []string          `json:"questions"`
	Index           int               `json:"index"`
	Answers         map[string]string `json:"answers"`
	RequiresHandoff bool              `json:"requires_handoff"`
}

// Done reports whether every pending question has been answered.
func (c *ClarificationContext) Done() bool {
	return c.Index >= len(c.Questions)
}

// Current returns the question awaiting an answer.
func (c *ClarificationContext) Current() string {
	if c.Index < len(c.Questions) {
		return c.Questions[c.Index]
	}
	return ""
}

// Session is the cross-turn durable conversation state.
// Exactly one turn per session is processed at a time; the session
// repository enforces the single-writer discipline.
type Session struct {
	ID             string                `json:"id"` // conversation id
	UserID         string                `json:"user_id"`
	DialogState    string                `json:"dialog_state"`
	AttemptCount   int                   `json:"attempt_count"`
	Clarification  *ClarificationContext `json:"clarification,omitempty"`
	LastConfidence float64               `json:"last_confidence"`
	LastSentiment  string                `json:"last_sentiment"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// Dialog state labels. The rule engine treats these as opaque data; the set
// here only names the states the default rule file uses.
const (
	StateInitial            = "INITIAL"
	StateClarify            = "CLARIFY"
	StateLowConfidence      = "LOW_CONFIDENCE"
	StateEmpathyMode        = "EMPATHY_MODE"
	StateRepeatedIssue      = "REPEATED_ISSUE"
	StateStuckLoop          = "STUCK_LOOP"
	StateEscalate           = "ESCALATE"
	StateResolved           = "RESOLVED"
	StateBlocked            = "BLOCKED"
	StateNeedsClarification = "NEEDS_CLARIFICATION"
	StateAnswerProvided     = "ANSWER_PROVIDED"
)

// NewSession returns a fresh session in the initial dialog state.
func NewSession(id, userID string) *Session {
	return &Session{
		ID:          id,
		UserID:      userID,
		DialogState: StateInitial,
		UpdatedAt:   time.Now(),
	}
}

// Turn is one user message plus the signals derived from it. Immutable once
// processed.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Question       string    `json:"question"`
	Language       string    `json:"language"`
	AttemptCount   int       `json:"attempt_count"`
	ReceivedAt     time.Time `json:"received_at"`
}
