package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/internal/registry"
	"github.com/letya999/support-rag-sub001/internal/repository/contract"
	"github.com/letya999/support-rag-sub001/internal/repository/memory"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"
	"github.com/letya999/support-rag-sub001/pkg/answercache"
	"github.com/letya999/support-rag-sub001/pkg/clarify"
	"github.com/letya999/support-rag-sub001/pkg/escalation"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// turnSignals is the canned pipeline output for one question.
type turnSignals struct {
	intent          string
	category        string
	confidence      float64
	sentimentLabel  string
	sentimentScore  float64
	safetyViolation bool
	explicitHandoff bool
	dialogState     string
	docs            []store.Document
	fail            bool
}

// chatHarness wires a chatService over fakes: canned pipeline signals, an
// in-memory transcript and a controllable validator.
type chatHarness struct {
	svc        IChatService
	uow        *fakeUnitOfWork
	signals    map[string]turnSignals
	answer     string
	valid      bool
	generated  int
	sessions   *memory.SessionRepository
	defaultSig turnSignals
}

const testPipeline = `{
	"graph": {
		"entry_fields": ["question", "conversation_id", "turn_id", "user_id", "dialog_state", "attempt_count", "clarify_answers"],
		"stages": [["analyze"], ["retrieve"]],
		"nodes": [
			{"name": "analyze", "critical": true},
			{"name": "retrieve"},
			{"name": "generate", "timeout_ms": 5000, "critical": true},
			{"name": "validate", "timeout_ms": 5000}
		]
	},
	"escalation": {
		"sentiment_severity": 0.8,
		"confidence": 0.5,
		"max_attempts": 2,
		"forbidden_categories": ["legal"]
	},
	"cache": {"capacity": 10, "ttl_seconds": 3600}
}`

func newChatHarness(t *testing.T) *chatHarness {
	t.Helper()

	h := &chatHarness{
		uow:      newFakeUnitOfWork(),
		signals:  make(map[string]turnSignals),
		answer:   "Here is how you do it.",
		valid:    true,
		sessions: memory.NewSessionRepository(),
		defaultSig: turnSignals{
			intent:         "question",
			category:       "general",
			confidence:     0.9,
			sentimentLabel: "neutral",
			dialogState:    store.StateInitial,
		},
	}

	nodeTable := graph.NewNodeRegistry()
	nodeTable.Register(graph.NewNode("analyze",
		[]string{graph.FieldQuestion},
		[]string{
			graph.FieldIntent, graph.FieldCategory, graph.FieldConfidence,
			graph.FieldSentimentLabel, graph.FieldSentimentScore,
			graph.FieldSafetyViolation, graph.FieldExplicitHandoff,
			graph.FieldDialogState,
		},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			sig := h.lookup(view.String(graph.FieldQuestion))
			if sig.fail {
				return nil, errors.New("analysis backend down")
			}
			return graph.Delta{
				graph.FieldIntent:          sig.intent,
				graph.FieldCategory:        sig.category,
				graph.FieldConfidence:      sig.confidence,
				graph.FieldSentimentLabel:  sig.sentimentLabel,
				graph.FieldSentimentScore:  sig.sentimentScore,
				graph.FieldSafetyViolation: sig.safetyViolation,
				graph.FieldExplicitHandoff: sig.explicitHandoff,
				graph.FieldDialogState:     sig.dialogState,
			}, nil
		}))
	nodeTable.Register(graph.NewNode("retrieve",
		[]string{graph.FieldQuestion},
		[]string{graph.FieldDocs},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			sig := h.lookup(view.String(graph.FieldQuestion))
			return graph.Delta{graph.FieldDocs: sig.docs}, nil
		}))
	nodeTable.Register(graph.NewNode("generate",
		[]string{graph.FieldQuestion, graph.FieldDocs, graph.FieldClarifyAnswers},
		[]string{graph.FieldAnswer},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			h.generated++
			return graph.Delta{graph.FieldAnswer: h.answer}, nil
		}))
	nodeTable.Register(graph.NewNode("validate",
		[]string{graph.FieldAnswer},
		[]string{graph.FieldAnswerValid},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			return graph.Delta{graph.FieldAnswerValid: h.valid}, nil
		}))

	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(testPipeline), 0o644))
	reg := registry.New(path, nodeTable, nil, logger.Nop())
	require.NoError(t, reg.Load())

	cache := answercache.New(answercache.NewMemoryBackend(10), nil, reg.Cache().CacheOptions(), logger.Nop())

	h.svc = NewChatService(
		h.uow,
		h.sessions,
		reg,
		nodeTable,
		cache,
		clarify.NewFlow(logger.Nop()),
		nil,
		logger.Nop(),
	)
	return h
}

func (h *chatHarness) lookup(question string) turnSignals {
	if sig, ok := h.signals[question]; ok {
		return sig
	}
	return h.defaultSig
}

func (h *chatHarness) send(t *testing.T, conversationID, message string) *dto.SendMessageResponse {
	t.Helper()
	res, err := h.svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		ConversationId: conversationID,
		UserId:         "user-1",
		Message:        message,
	})
	require.NoError(t, err)
	return res
}

func TestSendMessageAutoReply(t *testing.T) {
	h := newChatHarness(t)
	conv := uuid.NewString()

	res := h.send(t, conv, "How do I change my plan?")

	assert.Equal(t, escalation.OutcomeAutoReply, res.Outcome)
	assert.Equal(t, h.answer, res.Reply)
	assert.Equal(t, 0.9, res.Confidence)
	assert.False(t, res.Cached)
	assert.Len(t, h.uow.escalations, 0)
	// user turn + bot turn in the transcript
	assert.Len(t, h.uow.messages, 2)
	assert.Equal(t, entity.MessageRoleBot, h.uow.messages[1].Role)
	// conversation row created on first contact
	assert.Len(t, h.uow.conversations, 1)
}

func TestSendMessageServesCacheOnRepeat(t *testing.T) {
	h := newChatHarness(t)

	h.send(t, uuid.NewString(), "How do I change my plan?")
	require.Equal(t, 1, h.generated)

	res := h.send(t, uuid.NewString(), "How do I change my plan?")

	assert.True(t, res.Cached)
	assert.Equal(t, h.answer, res.Reply)
	assert.Equal(t, 1, h.generated, "cached turn must not regenerate")
}

func TestSendMessageEscalatesOnExplicitRequest(t *testing.T) {
	h := newChatHarness(t)
	h.signals["I want a human"] = turnSignals{
		intent: "handoff", confidence: 0.9, sentimentLabel: "neutral",
		explicitHandoff: true, dialogState: store.StateInitial,
	}

	res := h.send(t, uuid.NewString(), "I want a human")

	assert.Equal(t, escalation.OutcomeEscalate, res.Outcome)
	assert.Equal(t, escalation.ReasonUserRequested, res.Reason)
	assert.Equal(t, store.StateEscalate, res.DialogState)
	assert.Equal(t, 0, h.generated, "generation must be skipped for a pre-answer escalation")
	require.Len(t, h.uow.escalations, 1)
	assert.Equal(t, escalation.ReasonUserRequested, h.uow.escalations[0].Reason)
	assert.Equal(t, 2, h.uow.escalations[0].Priority)
}

func TestSendMessageEscalatedTurnIsNeverCached(t *testing.T) {
	h := newChatHarness(t)
	h.signals["refund my money"] = turnSignals{
		intent: "question", category: "legal", confidence: 0.95,
		sentimentLabel: "neutral", dialogState: store.StateInitial,
	}

	res := h.send(t, uuid.NewString(), "refund my money")
	require.Equal(t, escalation.OutcomeEscalate, res.Outcome)
	require.Equal(t, escalation.ReasonForbiddenCategory, res.Reason)

	// The same normalized question again must not hit a cache entry.
	res = h.send(t, uuid.NewString(), "refund my money")
	assert.False(t, res.Cached)
	assert.Equal(t, escalation.OutcomeEscalate, res.Outcome)
}

func TestSendMessageEscalatesOnInvalidOutput(t *testing.T) {
	h := newChatHarness(t)
	h.valid = false

	res := h.send(t, uuid.NewString(), "How do I change my plan?")

	assert.Equal(t, escalation.OutcomeEscalate, res.Outcome)
	assert.Equal(t, escalation.ReasonInvalidOutput, res.Reason)
	assert.Equal(t, 1, h.generated, "the answer is drafted before validation rejects it")

	// The rejected answer travels as escalation context.
	require.Len(t, h.uow.escalations, 1)
	assert.Equal(t, h.answer, h.uow.escalations[0].AnswerContext)
}

func TestSendMessageEscalatesOnPipelineFailure(t *testing.T) {
	h := newChatHarness(t)
	h.signals["broken"] = turnSignals{fail: true}

	res := h.send(t, uuid.NewString(), "broken")

	assert.Equal(t, escalation.OutcomeEscalate, res.Outcome)
	assert.True(t, strings.HasPrefix(res.Reason, escalation.ReasonPipelineFailure+":"), "reason = %q", res.Reason)
	require.Len(t, h.uow.escalations, 1)
	assert.Equal(t, 1, h.uow.escalations[0].Priority)
}

func TestSendMessageClarificationFlow(t *testing.T) {
	h := newChatHarness(t)
	doc := store.Document{
		ID:    uuid.NewString(),
		Title: "Refund policy",
		ClarifyingQuestions: []string{
			"Which plan did you purchase?",
			"When did you make the purchase?",
		},
		RequiresHandoff: true,
	}
	h.signals["I want a refund"] = turnSignals{
		intent: "question", category: "billing", confidence: 0.9,
		sentimentLabel: "neutral", dialogState: store.StateInitial,
		docs: []store.Document{doc},
	}
	conv := uuid.NewString()

	// Turn 1: the document starts the clarification flow.
	res := h.send(t, conv, "I want a refund")
	assert.Equal(t, OutcomeClarify, res.Outcome)
	assert.Equal(t, "Which plan did you purchase?", res.Reply)
	assert.Equal(t, store.StateNeedsClarification, res.DialogState)
	assert.Equal(t, 0, h.generated)

	// Turn 2: first answer, second question comes back. Retrieval is
	// bypassed, so the short answer is never treated as a query.
	res = h.send(t, conv, "annual plan")
	assert.Equal(t, OutcomeClarify, res.Outcome)
	assert.Equal(t, "When did you make the purchase?", res.Reply)

	// Turn 3: last answer completes the flow; the original question is
	// answered and the document handoff fires after generation.
	res = h.send(t, conv, "last week")
	assert.Equal(t, escalation.OutcomeEscalate, res.Outcome)
	assert.Equal(t, escalation.ReasonDocumentHandoff, res.Reason)
	assert.Equal(t, 1, h.generated, "handoff documents still get a generated answer first")
	assert.True(t, strings.HasPrefix(res.Reply, h.answer), "generated context must lead the handoff reply")

	// A clarified answer is user specific: the original question must not
	// have been cached for other conversations.
	res = h.send(t, uuid.NewString(), "I want a refund")
	assert.False(t, res.Cached)
	assert.Equal(t, OutcomeClarify, res.Outcome)
}

func TestSendMessageSevereSentimentEscalates(t *testing.T) {
	h := newChatHarness(t)
	h.signals["this is garbage"] = turnSignals{
		intent: "complaint", category: "general", confidence: 0.9,
		sentimentLabel: "angry", sentimentScore: 0.9,
		dialogState: store.StateInitial,
	}

	res := h.send(t, uuid.NewString(), "this is garbage")

	assert.Equal(t, escalation.OutcomeEscalate, res.Outcome)
	assert.Equal(t, escalation.ReasonSevereSentiment, res.Reason)
}

func TestSendMessageRejectsInvalidConversationId(t *testing.T) {
	h := newChatHarness(t)

	_, err := h.svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		ConversationId: "not-a-uuid",
		UserId:         "user-1",
		Message:        "hello",
	})
	assert.Error(t, err)
}

func TestCacheStats(t *testing.T) {
	h := newChatHarness(t)

	h.send(t, uuid.NewString(), "How do I change my plan?")
	h.send(t, uuid.NewString(), "How do I change my plan?")

	stats := h.svc.CacheStats(context.Background())
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 10, stats.Capacity)
}

// --- fakes -----------------------------------------------------------------

type fakeUnitOfWork struct {
	conversations map[uuid.UUID]*entity.Conversation
	messages      []*entity.Message
	escalations   []*entity.Escalation
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{conversations: make(map[uuid.UUID]*entity.Conversation)}
}

// NewUnitOfWork satisfies unitofwork.RepositoryFactory.
func (f *fakeUnitOfWork) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f }

func (f *fakeUnitOfWork) Begin(ctx context.Context) error { return nil }
func (f *fakeUnitOfWork) Commit() error                   { return nil }
func (f *fakeUnitOfWork) Rollback() error                 { return nil }

func (f *fakeUnitOfWork) DocumentRepository() contract.DocumentRepository { return nil }
func (f *fakeUnitOfWork) DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository {
	return nil
}
func (f *fakeUnitOfWork) ConversationRepository() contract.ConversationRepository {
	return &fakeConversationRepo{f}
}
func (f *fakeUnitOfWork) EscalationRepository() contract.EscalationRepository {
	return &fakeEscalationRepo{f}
}

type fakeConversationRepo struct{ f *fakeUnitOfWork }

func (r *fakeConversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	r.f.conversations[c.Id] = c
	return nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, c *entity.Conversation) error {
	r.f.conversations[c.Id] = c
	return nil
}

func (r *fakeConversationRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	for _, s := range specs {
		if byID, ok := s.(specification.ByID); ok {
			return r.f.conversations[byID.ID], nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	return nil, nil
}

func (r *fakeConversationRepo) UpdateDialogState(ctx context.Context, id uuid.UUID, state string) error {
	if c, ok := r.f.conversations[id]; ok {
		c.DialogState = state
	}
	return nil
}

func (r *fakeConversationRepo) AppendMessage(ctx context.Context, m *entity.Message) error {
	r.f.messages = append(r.f.messages, m)
	return nil
}

func (r *fakeConversationRepo) FindMessages(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	return r.f.messages, nil
}

func (r *fakeConversationRepo) CountMessages(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.f.messages)), nil
}

type fakeEscalationRepo struct{ f *fakeUnitOfWork }

func (r *fakeEscalationRepo) Create(ctx context.Context, e *entity.Escalation) error {
	r.f.escalations = append(r.f.escalations, e)
	return nil
}

func (r *fakeEscalationRepo) MarkResolved(ctx context.Context, id uuid.UUID) error {
	for _, e := range r.f.escalations {
		if e.Id == id {
			e.Resolved = true
		}
	}
	return nil
}

func (r *fakeEscalationRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Escalation, error) {
	return nil, nil
}

func (r *fakeEscalationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Escalation, error) {
	return r.f.escalations, nil
}

func (r *fakeEscalationRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.f.escalations)), nil
}
