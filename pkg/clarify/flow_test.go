package clarify

import (
	"testing"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/store"
)

func refundDoc() *store.Document {
	return &store.Document{
		ID:    "doc-refund",
		Title: "Refund policy",
		ClarifyingQuestions: []string{
			"Which plan did you purchase?",
			"When did you make the purchase?",
		},
		RequiresHandoff: true,
	}
}

func TestShouldInit(t *testing.T) {
	f := NewFlow(logger.Nop())
	session := store.NewSession("c1", "u1")

	if !f.ShouldInit(refundDoc(), session) {
		t.Error("document with clarifying questions should start the flow")
	}
	if f.ShouldInit(nil, session) {
		t.Error("nil document started the flow")
	}
	if f.ShouldInit(&store.Document{ID: "plain"}, session) {
		t.Error("document without questions started the flow")
	}

	f.Init(refundDoc(), session, "I want a refund")
	if f.ShouldInit(refundDoc(), session) {
		t.Error("flow restarted while a context is active")
	}
}

func TestInitAsksFirstQuestion(t *testing.T) {
	f := NewFlow(logger.Nop())
	session := store.NewSession("c1", "u1")

	res := f.Init(refundDoc(), session, "I want a refund")

	if res.Reply != "Which plan did you purchase?" {
		t.Errorf("Reply = %q", res.Reply)
	}
	if res.DialogState != store.StateNeedsClarification {
		t.Errorf("DialogState = %q", res.DialogState)
	}
	if session.Clarification == nil || !session.Clarification.Active {
		t.Fatal("no active context on the session")
	}
	if session.Clarification.Question != "I want a refund" {
		t.Errorf("triggering question not recorded: %q", session.Clarification.Question)
	}
}

func TestCollectWalksQuestionsInOrder(t *testing.T) {
	f := NewFlow(logger.Nop())
	session := store.NewSession("c1", "u1")
	f.Init(refundDoc(), session, "I want a refund")

	res := f.Collect(session, "annual plan")
	if res.Completed {
		t.Fatal("completed after first of two answers")
	}
	if res.Reply != "When did you make the purchase?" {
		t.Errorf("Reply = %q", res.Reply)
	}

	res = f.Collect(session, "last week")
	if !res.Completed {
		t.Fatal("not completed after last answer")
	}
	if res.OriginalQuestion != "I want a refund" {
		t.Errorf("OriginalQuestion = %q", res.OriginalQuestion)
	}
	if !res.RequiresHandoff {
		t.Error("RequiresHandoff flag lost")
	}
	if res.DialogState != store.StateAnswerProvided {
		t.Errorf("DialogState = %q", res.DialogState)
	}
	if res.Answers["Which plan did you purchase?"] != "annual plan" {
		t.Errorf("Answers = %v", res.Answers)
	}
	want := "1. Which plan did you purchase? annual plan\n2. When did you make the purchase? last week"
	if res.AnswerContext != want {
		t.Errorf("AnswerContext = %q, want %q", res.AnswerContext, want)
	}
	if session.Clarification != nil {
		t.Error("context not cleared after completion")
	}
}

func TestCollectReAsksOnBlankAnswer(t *testing.T) {
	f := NewFlow(logger.Nop())
	session := store.NewSession("c1", "u1")
	f.Init(refundDoc(), session, "I want a refund")

	res := f.Collect(session, "   ")
	if res.Completed {
		t.Fatal("blank answer completed the flow")
	}
	if res.Reply != "Which plan did you purchase?" {
		t.Errorf("Reply = %q, want the same question re-asked", res.Reply)
	}
	if session.Clarification.Index != 0 {
		t.Error("blank answer advanced the cursor")
	}

	// A real answer afterwards still lands on the first question.
	res = f.Collect(session, "monthly")
	if session.Clarification.Answers["Which plan did you purchase?"] != "monthly" {
		t.Errorf("Answers = %v", session.Clarification.Answers)
	}
	if res.Reply != "When did you make the purchase?" {
		t.Errorf("Reply = %q", res.Reply)
	}
}

func TestSingleQuestionFlowCompletesImmediately(t *testing.T) {
	f := NewFlow(logger.Nop())
	session := store.NewSession("c1", "u1")
	doc := &store.Document{
		ID:                  "doc-sync",
		ClarifyingQuestions: []string{"What error code do you see?"},
	}

	f.Init(doc, session, "sync is broken")
	res := f.Collect(session, "SYNC-401")

	if !res.Completed {
		t.Fatal("single-question flow did not complete")
	}
	if res.RequiresHandoff {
		t.Error("handoff flag set for a document without one")
	}
	if res.AnswerContext != "1. What error code do you see? SYNC-401" {
		t.Errorf("AnswerContext = %q", res.AnswerContext)
	}
}
