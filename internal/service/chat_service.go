package service

import (
	"context"
	"fmt"
	"time"

	"github.com/letya999/support-rag-sub001/internal/dto"
	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/internal/registry"
	"github.com/letya999/support-rag-sub001/internal/repository/memory"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"
	"github.com/letya999/support-rag-sub001/pkg/answercache"
	"github.com/letya999/support-rag-sub001/pkg/clarify"
	"github.com/letya999/support-rag-sub001/pkg/escalation"
	"github.com/letya999/support-rag-sub001/pkg/events"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/nodes"
	pktNats "github.com/letya999/support-rag-sub001/pkg/nats"
	"github.com/letya999/support-rag-sub001/pkg/store"

	"github.com/google/uuid"
)

// Turn outcomes visible to the transport layer.
const (
	OutcomeClarify = "clarify"

	handoffReply = "I'm connecting you with a support operator who can help with this."
)

type IChatService interface {
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	CacheStats(ctx context.Context) *dto.CacheStatsResponse
}

// chatService orchestrates one conversation turn: clarification handling,
// cache lookup, the execution graph, the escalation decision and the
// post-decision generation stages.
type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	sessionRepo *memory.SessionRepository
	registry    *registry.Registry
	nodeTable   *graph.Registry
	cache       *answercache.Cache
	flow        *clarify.Flow
	eventPub    *pktNats.Publisher
	log         logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	sessionRepo *memory.SessionRepository,
	reg *registry.Registry,
	nodeTable *graph.Registry,
	cache *answercache.Cache,
	flow *clarify.Flow,
	eventPub *pktNats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:  uowFactory,
		sessionRepo: sessionRepo,
		registry:    reg,
		nodeTable:   nodeTable,
		cache:       cache,
		flow:        flow,
		eventPub:    eventPub,
		log:         log,
	}
}

// turn carries the per-request working set through the private helpers.
type turn struct {
	id             uuid.UUID
	conversationId uuid.UUID
	session        *store.Session
	question       string
	clarifyAnswers string
	docHandoff     bool
}

func (c *chatService) SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	conversationId, err := uuid.Parse(req.ConversationId)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation id: %w", err)
	}

	// One turn at a time per conversation.
	unlock := c.sessionRepo.Lock(req.ConversationId)
	defer unlock()

	session := c.sessionRepo.GetOrCreate(req.ConversationId, req.UserId)

	t := &turn{
		id:             uuid.New(),
		conversationId: conversationId,
		session:        session,
		question:       req.Message,
	}

	if err := c.ensureConversation(ctx, t, req.UserId); err != nil {
		return nil, err
	}
	c.appendMessage(ctx, t, entity.MessageRoleUser, req.Message, "")

	// An active clarification owns the turn: no retrieval, no cache.
	if session.Clarification != nil && session.Clarification.Active {
		res := c.flow.Collect(session, req.Message)
		if !res.Completed {
			c.sessionRepo.Save(session)
			c.appendMessage(ctx, t, entity.MessageRoleBot, res.Reply, OutcomeClarify)
			return &dto.SendMessageResponse{
				TurnId:      t.id.String(),
				Reply:       res.Reply,
				Outcome:     OutcomeClarify,
				DialogState: session.DialogState,
			}, nil
		}
		// Completed: answer the original question with the collected
		// details, then honor a pending document handoff.
		t.question = res.OriginalQuestion
		t.clarifyAnswers = res.AnswerContext
		t.docHandoff = res.RequiresHandoff
	}

	if t.clarifyAnswers == "" {
		if entry, ok := c.cache.Get(ctx, t.question); ok {
			c.appendMessage(ctx, t, entity.MessageRoleBot, entry.Answer, escalation.OutcomeAutoReply)
			c.publish(ctx, events.NewCacheHit(req.ConversationId, entry.NormalizedKey, true))
			return &dto.SendMessageResponse{
				TurnId:      t.id.String(),
				Reply:       entry.Answer,
				Outcome:     escalation.OutcomeAutoReply,
				DialogState: session.DialogState,
				Confidence:  entry.Confidence,
				Cached:      true,
			}, nil
		}
	}

	executor := graph.NewExecutor(c.registry.Plan(), c.log)

	state := graph.State{
		graph.FieldQuestion:       t.question,
		graph.FieldConversationID: req.ConversationId,
		graph.FieldTurnID:         t.id.String(),
		graph.FieldUserID:         req.UserId,
		graph.FieldDialogState:    session.DialogState,
		graph.FieldAttemptCount:   session.AttemptCount,
		graph.FieldClarifyAnswers: t.clarifyAnswers,
	}

	result, err := executor.Run(ctx, state)
	if err != nil {
		return nil, err
	}
	if result.Escalated {
		// A critical node failed; the partial state may lack signals, so
		// this bypasses the decider entirely.
		return c.escalate(ctx, t, result.State, escalation.Decision{
			Outcome:  escalation.OutcomeEscalate,
			Reason:   escalation.ReasonPipelineFailure + ":" + result.Reason,
			Priority: 1,
		}, "")
	}
	state = result.State

	session.DialogState = state.String(graph.FieldDialogState)
	session.AttemptCount = state.Int(graph.FieldAttemptCount)
	session.LastConfidence = state.Float(graph.FieldConfidence)
	session.LastSentiment = state.String(graph.FieldSentimentLabel)

	thresholds := c.registry.Thresholds()
	signals := escalation.Signals{
		SafetyViolation: state.Bool(graph.FieldSafetyViolation),
		ExplicitRequest: state.Bool(graph.FieldExplicitHandoff),
		SentimentLabel:  state.String(graph.FieldSentimentLabel),
		SentimentScore:  state.Float(graph.FieldSentimentScore),
		Category:        state.String(graph.FieldCategory),
		Confidence:      state.Float(graph.FieldConfidence),
		AttemptCount:    session.AttemptCount,
		DialogState:     session.DialogState,
	}

	// First decision pass, before any answer exists. Generation is skipped
	// entirely when the turn is already headed to an operator.
	if decision := escalation.Decide(signals, thresholds); decision.Outcome == escalation.OutcomeEscalate {
		return c.escalate(ctx, t, state, decision, "")
	}

	// A retrieved document may demand disambiguation before any answer.
	if doc := topDocument(state); c.flow.ShouldInit(doc, session) && t.clarifyAnswers == "" {
		res := c.flow.Init(doc, session, t.question)
		c.sessionRepo.Save(session)
		c.appendMessage(ctx, t, entity.MessageRoleBot, res.Reply, OutcomeClarify)
		return &dto.SendMessageResponse{
			TurnId:      t.id.String(),
			Reply:       res.Reply,
			Outcome:     OutcomeClarify,
			DialogState: session.DialogState,
		}, nil
	}

	answer, valid, err := c.generateAndValidate(ctx, executor, state)
	if err != nil {
		return c.escalate(ctx, t, state, escalation.Decision{
			Outcome:  escalation.OutcomeEscalate,
			Reason:   escalation.ReasonPipelineFailure + ":generation",
			Priority: 1,
		}, "")
	}

	// Second decision pass with the output-validation signal.
	signals.OutputInvalid = !valid
	if decision := escalation.Decide(signals, thresholds); decision.Outcome == escalation.OutcomeEscalate {
		return c.escalate(ctx, t, state, decision, answer)
	}

	// Deferred handoff: the clarification document required an operator.
	// The generated answer context travels with the escalation.
	if t.docHandoff {
		return c.escalate(ctx, t, state, escalation.Decision{
			Outcome:  escalation.OutcomeEscalate,
			Reason:   escalation.ReasonDocumentHandoff,
			Priority: 2,
		}, answer)
	}

	// Auto reply. Clarified answers are user specific; only generic turns
	// are cached.
	if t.clarifyAnswers == "" {
		c.cache.Set(ctx, t.question, &answercache.Entry{
			OriginalQuery: t.question,
			Answer:        answer,
			DocIDs:        documentIDs(state),
			Confidence:    signals.Confidence,
			CreatedAt:     time.Now(),
		})
	}

	c.sessionRepo.Save(session)
	c.persistDialogState(ctx, t)
	c.appendTurnMessage(ctx, t, state, answer, escalation.OutcomeAutoReply)
	c.publish(ctx, events.NewTurnCompleted(req.ConversationId, t.id.String(), escalation.OutcomeAutoReply, "", false))

	return &dto.SendMessageResponse{
		TurnId:      t.id.String(),
		Reply:       answer,
		Outcome:     escalation.OutcomeAutoReply,
		DialogState: session.DialogState,
		Confidence:  signals.Confidence,
	}, nil
}

func (c *chatService) CacheStats(ctx context.Context) *dto.CacheStatsResponse {
	s := c.cache.Stats(ctx)
	return &dto.CacheStatsResponse{
		Hits:     s.Hits,
		Misses:   s.Misses,
		HitRate:  s.HitRate,
		Entries:  s.Entries,
		Capacity: s.Capacity,
	}
}

// generateAndValidate runs the post-decision stages with the same
// middleware chain the staged plan uses.
func (c *chatService) generateAndValidate(ctx context.Context, executor *graph.Executor, state graph.State) (string, bool, error) {
	generate, ok := c.nodeTable.Lookup(nodes.NodeGenerate)
	if !ok {
		return "", false, fmt.Errorf("generate node not registered")
	}
	delta, err := executor.RunNode(ctx, generate, c.registry.NodeConfig(nodes.NodeGenerate), state)
	if err != nil {
		return "", false, err
	}
	answer, _ := delta[graph.FieldAnswer].(string)
	state[graph.FieldAnswer] = answer

	validate, ok := c.nodeTable.Lookup(nodes.NodeValidate)
	if !ok {
		return answer, answer != "", nil
	}
	vdelta, err := executor.RunNode(ctx, validate, c.registry.NodeConfig(nodes.NodeValidate), state)
	if err != nil {
		// Validation failing is not a reason to drop the turn; the answer
		// counts as unverified and the decider handles it.
		c.log.Warn("chat", "validation stage failed", map[string]interface{}{
			"turn_id": state.String(graph.FieldTurnID),
			"error":   err.Error(),
		})
		return answer, false, nil
	}
	valid, _ := vdelta[graph.FieldAnswerValid].(bool)
	return answer, valid, nil
}

// escalate closes the turn toward an operator: records the escalation,
// flips the session state and notifies the operator feed.
func (c *chatService) escalate(ctx context.Context, t *turn, state graph.State, decision escalation.Decision, answerContext string) (*dto.SendMessageResponse, error) {
	t.session.DialogState = store.StateEscalate
	c.sessionRepo.Save(t.session)

	esc := &entity.Escalation{
		Id:             uuid.New(),
		ConversationId: t.conversationId,
		TurnId:         t.id,
		Reason:         decision.Reason,
		Priority:       decision.Priority,
		Question:       t.question,
		AnswerContext:  answerContext,
		DialogState:    state.String(graph.FieldDialogState),
		CreatedAt:      time.Now(),
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.EscalationRepository().Create(ctx, esc); err != nil {
		c.log.Error("chat", "escalation persist failed", map[string]interface{}{
			"turn_id": t.id.String(),
			"error":   err.Error(),
		})
	}
	c.persistDialogState(ctx, t)

	reply := handoffReply
	if answerContext != "" {
		reply = answerContext + "\n\n" + handoffReply
	}
	c.appendTurnMessage(ctx, t, state, reply, escalation.OutcomeEscalate)

	c.publish(ctx, events.NewEscalationCreated(t.conversationId.String(), t.id.String(), decision.Reason, decision.Priority, t.question))
	c.publish(ctx, events.NewTurnCompleted(t.conversationId.String(), t.id.String(), escalation.OutcomeEscalate, decision.Reason, false))

	c.log.Info("chat", "turn escalated", map[string]interface{}{
		"turn_id": t.id.String(),
		"reason":  decision.Reason,
	})

	return &dto.SendMessageResponse{
		TurnId:      t.id.String(),
		Reply:       reply,
		Outcome:     escalation.OutcomeEscalate,
		Reason:      decision.Reason,
		DialogState: t.session.DialogState,
	}, nil
}

// ensureConversation creates the conversation row on first contact.
func (c *chatService) ensureConversation(ctx context.Context, t *turn, userId string) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	conv, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: t.conversationId})
	if err != nil {
		return err
	}
	if conv != nil {
		return nil
	}
	return uow.ConversationRepository().Create(ctx, &entity.Conversation{
		Id:          t.conversationId,
		UserId:      userId,
		DialogState: t.session.DialogState,
		CreatedAt:   time.Now(),
	})
}

func (c *chatService) persistDialogState(ctx context.Context, t *turn) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ConversationRepository().UpdateDialogState(ctx, t.conversationId, t.session.DialogState); err != nil {
		c.log.Warn("chat", "dialog state persist failed", map[string]interface{}{
			"conversation_id": t.conversationId.String(),
			"error":           err.Error(),
		})
	}
}

// appendMessage persists a transcript row; failures are logged, never fatal
// to the turn.
func (c *chatService) appendMessage(ctx context.Context, t *turn, role, content, outcome string) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	err := uow.ConversationRepository().AppendMessage(ctx, &entity.Message{
		Id:             uuid.New(),
		ConversationId: t.conversationId,
		Role:           role,
		Content:        content,
		Outcome:        outcome,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		c.log.Warn("chat", "message persist failed", map[string]interface{}{
			"conversation_id": t.conversationId.String(),
			"error":           err.Error(),
		})
	}
}

// appendTurnMessage is appendMessage plus the per-turn analysis columns.
func (c *chatService) appendTurnMessage(ctx context.Context, t *turn, state graph.State, content, outcome string) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	err := uow.ConversationRepository().AppendMessage(ctx, &entity.Message{
		Id:             uuid.New(),
		ConversationId: t.conversationId,
		Role:           entity.MessageRoleBot,
		Content:        content,
		Intent:         state.String(graph.FieldIntent),
		Confidence:     state.Float(graph.FieldConfidence),
		Sentiment:      state.String(graph.FieldSentimentLabel),
		Outcome:        outcome,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		c.log.Warn("chat", "message persist failed", map[string]interface{}{
			"conversation_id": t.conversationId.String(),
			"error":           err.Error(),
		})
	}
}

func (c *chatService) publish(ctx context.Context, event events.Event) {
	if c.eventPub == nil {
		return
	}
	if err := c.eventPub.Publish(ctx, event); err != nil {
		c.log.Warn("chat", "event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func topDocument(state graph.State) *store.Document {
	docs, _ := state[graph.FieldDocs].([]store.Document)
	if len(docs) == 0 {
		return nil
	}
	return &docs[0]
}

func documentIDs(state graph.State) []string {
	docs, _ := state[graph.FieldDocs].([]store.Document)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
