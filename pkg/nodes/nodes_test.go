package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/llm"
	"github.com/letya999/support-rag-sub001/pkg/store"
)

// fakeLLM replays a canned response (or error) for every call.
type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func fixedRetrieval(cfg RetrievalConfig) func() RetrievalConfig {
	return func() RetrievalConfig { return cfg }
}

func TestClassifyParsesFencedJSON(t *testing.T) {
	provider := &fakeLLM{response: "```json\n{\"intent\":\"question\",\"category\":\"billing\",\"confidence\":0.87,\"language\":\"en\",\"safety_violation\":false,\"explicit_handoff\":false}\n```"}
	node := NewClassifyNode(provider, logger.Nop())

	delta, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion: "Why was I charged twice?",
		graph.FieldTurnID:   "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if delta[graph.FieldIntent] != "question" || delta[graph.FieldCategory] != "billing" {
		t.Errorf("delta = %v", delta)
	}
	if delta[graph.FieldConfidence] != 0.87 {
		t.Errorf("confidence = %v", delta[graph.FieldConfidence])
	}
}

func TestClassifyDegradesOnUnparseableReply(t *testing.T) {
	provider := &fakeLLM{response: "I think the user wants billing help."}
	node := NewClassifyNode(provider, logger.Nop())

	delta, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion: "q",
		graph.FieldTurnID:   "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if delta[graph.FieldIntent] != "other" {
		t.Errorf("intent = %v", delta[graph.FieldIntent])
	}
	if delta[graph.FieldConfidence] != 0.0 {
		t.Errorf("degraded confidence = %v, want 0", delta[graph.FieldConfidence])
	}
	if delta[graph.FieldSafetyViolation] != false {
		t.Error("degraded classification must not flag safety")
	}
}

func TestClassifyPropagatesProviderError(t *testing.T) {
	provider := &fakeLLM{err: errors.New("model down")}
	node := NewClassifyNode(provider, logger.Nop())

	if _, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion: "q",
		graph.FieldTurnID:   "t1",
	}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSentimentDegradesToNeutral(t *testing.T) {
	provider := &fakeLLM{response: "the user seems upset"}
	node := NewSentimentNode(provider, logger.Nop())

	delta, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion: "q",
		graph.FieldTurnID:   "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if delta[graph.FieldSentimentLabel] != "neutral" {
		t.Errorf("label = %v", delta[graph.FieldSentimentLabel])
	}
	if delta[graph.FieldSentimentScore] != 0.0 {
		t.Errorf("score = %v", delta[graph.FieldSentimentScore])
	}
}

func fusionState(vector, lexical []store.Document) graph.State {
	return graph.State{
		graph.FieldVectorDocs:  vector,
		graph.FieldLexicalDocs: lexical,
	}
}

func TestFusionWeightsBranchAgreement(t *testing.T) {
	node := NewFusionNode(fixedRetrieval(RetrievalConfig{
		VectorWeight:  0.7,
		LexicalWeight: 0.3,
		TopK:          5,
	}), logger.Nop())

	vector := []store.Document{
		{ID: "both", Title: "Both branches", Score: 0.8},
		{ID: "vec-only", Title: "Vector only", Score: 0.9},
	}
	lexical := []store.Document{
		{ID: "both", Title: "Both branches", Score: 0.9},
	}

	delta, err := node.Run(context.Background(), fusionState(vector, lexical))
	if err != nil {
		t.Fatal(err)
	}
	docs := delta[graph.FieldDocs].([]store.Document)

	// both: 0.7*0.8 + 0.3*0.9 = 0.83 beats vec-only: 0.7*0.9 = 0.63.
	if docs[0].ID != "both" {
		t.Errorf("top doc = %s", docs[0].ID)
	}
	if docs[1].ID != "vec-only" {
		t.Errorf("second doc = %s", docs[1].ID)
	}
}

func TestFusionIsDeterministic(t *testing.T) {
	node := NewFusionNode(fixedRetrieval(RetrievalConfig{VectorWeight: 0.5, LexicalWeight: 0.5, TopK: 10}), logger.Nop())

	// Equal fused scores: insertion order (vector branch first) must decide.
	vector := []store.Document{
		{ID: "a", Score: 0.6},
		{ID: "b", Score: 0.6},
	}
	lexical := []store.Document{
		{ID: "c", Score: 0.6},
	}

	var first []string
	for i := 0; i < 10; i++ {
		delta, err := node.Run(context.Background(), fusionState(vector, lexical))
		if err != nil {
			t.Fatal(err)
		}
		docs := delta[graph.FieldDocs].([]store.Document)
		ids := make([]string, len(docs))
		for j, d := range docs {
			ids[j] = d.ID
		}
		if first == nil {
			first = ids
			continue
		}
		for j := range ids {
			if ids[j] != first[j] {
				t.Fatalf("run %d produced order %v, first run %v", i, ids, first)
			}
		}
	}
	if first[0] != "a" || first[1] != "b" || first[2] != "c" {
		t.Errorf("tie order = %v, want insertion order a b c", first)
	}
}

func TestFusionCapsAtTopK(t *testing.T) {
	node := NewFusionNode(fixedRetrieval(RetrievalConfig{TopK: 2}), logger.Nop())

	vector := []store.Document{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.8},
		{ID: "c", Score: 0.7},
	}

	delta, err := node.Run(context.Background(), fusionState(vector, nil))
	if err != nil {
		t.Fatal(err)
	}
	docs := delta[graph.FieldDocs].([]store.Document)
	if len(docs) != 2 {
		t.Errorf("len = %d, want 2", len(docs))
	}
}

func TestFusionHandlesMissingBranch(t *testing.T) {
	node := NewFusionNode(fixedRetrieval(RetrievalConfig{TopK: 5}), logger.Nop())

	delta, err := node.Run(context.Background(), graph.State{
		graph.FieldLexicalDocs: []store.Document{{ID: "lex", Score: 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	docs := delta[graph.FieldDocs].([]store.Document)
	if len(docs) != 1 || docs[0].ID != "lex" {
		t.Errorf("docs = %v", docs)
	}
}

func TestGenerateUsesClarifiedPromptWhenDetailsPresent(t *testing.T) {
	provider := &fakeLLM{response: "Here is your refund answer."}
	node := NewGenerateNode(provider, logger.Nop())

	_, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion:       "I want a refund",
		graph.FieldDocs:           []store.Document{{Title: "Refund policy", Content: "14 days."}},
		graph.FieldClarifyAnswers: "1. Which plan? annual",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("prompts = %d", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[0], "1. Which plan? annual") {
		t.Error("collected details missing from the prompt")
	}
}

func TestValidateFailsEmptyAnswerWithoutLLM(t *testing.T) {
	provider := &fakeLLM{response: `{"valid": true}`}
	node := NewValidateNode(provider, logger.Nop())

	delta, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion: "q",
		graph.FieldAnswer:   "   ",
		graph.FieldTurnID:   "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if delta[graph.FieldAnswerValid] != false {
		t.Error("blank answer validated")
	}
	if len(provider.prompts) != 0 {
		t.Error("LLM consulted for a structurally empty answer")
	}
}

func TestValidateUnparseableVerdictIsInvalid(t *testing.T) {
	provider := &fakeLLM{response: "looks fine to me"}
	node := NewValidateNode(provider, logger.Nop())

	delta, err := node.Run(context.Background(), graph.State{
		graph.FieldQuestion: "q",
		graph.FieldAnswer:   "Some answer",
		graph.FieldTurnID:   "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if delta[graph.FieldAnswerValid] != false {
		t.Error("unparseable verdict counted as valid")
	}
}

func TestParseJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"bare object", `{"valid": true}`, false},
		{"fenced", "```json\n{\"valid\": true}\n```", false},
		{"prose around object", "Sure! {\"valid\": true} Hope that helps.", false},
		{"no object", "no json here", true},
		{"broken object", `{"valid": `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out validateResult
			err := parseJSONResponse(tt.in, &out)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

