package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/letya999/support-rag-sub001/internal/constant"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/llm"
	"github.com/letya999/support-rag-sub001/pkg/store"
)

const (
	NodeGenerate = "generate"
	NodeValidate = "validate"
)

// NewGenerateNode drafts the answer from the fused context. When the
// clarification sub-flow collected details this turn, they are appended to
// the prompt so the answer addresses the user's specific case.
func NewGenerateNode(provider llm.LLMProvider, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeGenerate,
		[]string{graph.FieldQuestion, graph.FieldDocs, graph.FieldClarifyAnswers},
		[]string{graph.FieldAnswer},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			question := view.String(graph.FieldQuestion)
			docs, _ := view[graph.FieldDocs].([]store.Document)
			contextStr := buildContext(docs)

			var prompt string
			if details := view.String(graph.FieldClarifyAnswers); details != "" {
				prompt = fmt.Sprintf(constant.GenerateClarifiedPrompt, question, details, contextStr)
			} else {
				prompt = fmt.Sprintf(constant.GeneratePrompt, question, contextStr)
			}

			answer, err := provider.Generate(ctx, prompt, llm.WithTemperature(0.3))
			if err != nil {
				return nil, err
			}
			return graph.Delta{graph.FieldAnswer: strings.TrimSpace(answer)}, nil
		},
	)
}

type validateResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// NewValidateNode checks the draft answer against its source context. A
// structurally empty answer fails without an LLM round trip; otherwise the
// model judges grounding. An unparseable verdict counts as invalid, never
// as valid.
func NewValidateNode(provider llm.LLMProvider, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeValidate,
		[]string{graph.FieldQuestion, graph.FieldAnswer, graph.FieldDocs, graph.FieldTurnID},
		[]string{graph.FieldAnswerValid},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			answer := view.String(graph.FieldAnswer)
			if strings.TrimSpace(answer) == "" {
				return graph.Delta{graph.FieldAnswerValid: false}, nil
			}

			docs, _ := view[graph.FieldDocs].([]store.Document)
			prompt := fmt.Sprintf(constant.ValidatePrompt,
				view.String(graph.FieldQuestion), answer, buildContext(docs))

			reply, err := provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
			if err != nil {
				return nil, err
			}

			var res validateResult
			if err := parseJSONResponse(reply, &res); err != nil {
				log.Warn("nodes.validate", "unparseable verdict, treating answer as invalid", map[string]interface{}{
					"turn_id": view.String(graph.FieldTurnID),
					"error":   err.Error(),
				})
				res.Valid = false
			}
			if !res.Valid {
				log.Info("nodes.validate", "answer rejected", map[string]interface{}{
					"turn_id": view.String(graph.FieldTurnID),
					"reason":  res.Reason,
				})
			}
			return graph.Delta{graph.FieldAnswerValid: res.Valid}, nil
		},
	)
}

func buildContext(docs []store.Document) string {
	if len(docs) == 0 {
		return "(no matching articles)"
	}
	var sb strings.Builder
	for i, d := range docs {
		sb.WriteString(fmt.Sprintf("[%d] %s\n%s\n\n", i+1, d.Title, d.Content))
	}
	return strings.TrimSpace(sb.String())
}
