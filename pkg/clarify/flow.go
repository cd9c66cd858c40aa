package clarify

import (
	"fmt"
	"strings"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/store"
)

// Flow drives the two-mode clarification sub-flow over the persisted
// ClarificationContext. While a context is active, retrieval is bypassed
// entirely: the routing check happens before any search node runs, because
// treating short slot answers ("12", "yesterday") as fresh queries produces
// irrelevant retrieval.
type Flow struct {
	log logger.ILogger
}

// Result is one clarification step outcome.
type Result struct {
	// Reply is the next question to ask, or empty when the flow completed.
	Reply string
	// Completed is set on the turn that answered the last question.
	Completed bool
	// Answers holds the collected question -> answer pairs on completion.
	Answers map[string]string
	// AnswerContext is the ordered Q/A list formatted for the generation
	// prompt.
	AnswerContext string
	// OriginalQuestion is the turn that triggered the flow, restored on
	// completion so the pipeline answers it rather than the last detail.
	OriginalQuestion string
	// RequiresHandoff carries the flag recorded at init time; on completion
	// the caller evaluates escalation after generation (generate-then-
	// escalate, never instead of).
	RequiresHandoff bool
	// DialogState is NEEDS_CLARIFICATION while collecting, ANSWER_PROVIDED
	// on completion.
	DialogState string
}

func NewFlow(log logger.ILogger) *Flow {
	return &Flow{log: log}
}

// ShouldInit reports whether a retrieved document starts a clarification
// flow: it carries clarifying questions and no context is active yet.
func (f *Flow) ShouldInit(doc *store.Document, session *store.Session) bool {
	if doc == nil || len(doc.ClarifyingQuestions) == 0 {
		return false
	}
	return session.Clarification == nil || !session.Clarification.Active
}

// Init creates the context and emits the first question. question is the
// user turn that triggered the flow; it is kept so generation can answer it
// once the details are in.
func (f *Flow) Init(doc *store.Document, session *store.Session, question string) *Result {
	session.Clarification = &store.ClarificationContext{
		Active:          true,
		Question:        question,
		Questions:       append([]string(nil), doc.ClarifyingQuestions...),
		Index:           0,
		Answers:         make(map[string]string, len(doc.ClarifyingQuestions)),
		RequiresHandoff: doc.RequiresHandoff,
	}
	session.DialogState = store.StateNeedsClarification

	f.log.Info("clarify", "clarification started", map[string]interface{}{
		"session":   session.ID,
		"questions": len(doc.ClarifyingQuestions),
		"document":  doc.ID,
	})

	return &Result{
		Reply:       session.Clarification.Questions[0],
		DialogState: store.StateNeedsClarification,
	}
}

// Collect consumes one user turn while the context is active. The parser is
// strictly positional: the message, verbatim, answers exactly the current
// question. A blank message is ambiguous; the current question is re-asked
// verbatim rather than guessed at.
func (f *Flow) Collect(session *store.Session, message string) *Result {
	cc := session.Clarification

	answer := strings.TrimSpace(message)
	if answer == "" {
		f.log.Debug("clarify", "ambiguous answer, re-asking", map[string]interface{}{
			"session": session.ID,
			"index":   cc.Index,
		})
		return &Result{
			Reply:       cc.Current(),
			DialogState: store.StateNeedsClarification,
		}
	}

	cc.Answers[cc.Current()] = answer
	cc.Index++

	if !cc.Done() {
		session.DialogState = store.StateNeedsClarification
		return &Result{
			Reply:       cc.Current(),
			DialogState: store.StateNeedsClarification,
		}
	}

	// All questions answered: deactivate and hand the ordered Q/A list to
	// generation. The context is destroyed by the caller persisting the
	// session.
	cc.Active = false
	session.DialogState = store.StateAnswerProvided

	f.log.Info("clarify", "clarification completed", map[string]interface{}{
		"session": session.ID,
		"answers": len(cc.Answers),
	})

	res := &Result{
		Completed:        true,
		Answers:          cc.Answers,
		AnswerContext:    formatAnswers(cc),
		OriginalQuestion: cc.Question,
		RequiresHandoff:  cc.RequiresHandoff,
		DialogState:      store.StateAnswerProvided,
	}
	session.Clarification = nil
	return res
}

// formatAnswers renders the ordered Q/A list for the generation context.
func formatAnswers(cc *store.ClarificationContext) string {
	var b strings.Builder
	for i, q := range cc.Questions {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, q, cc.Answers[q])
	}
	return strings.TrimRight(b.String(), "\n")
}
