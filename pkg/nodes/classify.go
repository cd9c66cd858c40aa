package nodes

import (
	"context"
	"fmt"

	"github.com/letya999/support-rag-sub001/internal/constant"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/llm"
)

const NodeClassify = "classify"

type classifyResult struct {
	Intent          string  `json:"intent"`
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
	Language        string  `json:"language"`
	SafetyViolation bool    `json:"safety_violation"`
	ExplicitHandoff bool    `json:"explicit_handoff"`
}

// NewClassifyNode extracts intent, category, confidence, language and the
// safety/handoff flags from the user message in one LLM call. When the
// model reply cannot be parsed, the node degrades to a zero-confidence
// classification rather than failing the turn.
func NewClassifyNode(provider llm.LLMProvider, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeClassify,
		[]string{graph.FieldQuestion, graph.FieldTurnID},
		[]string{
			graph.FieldIntent, graph.FieldCategory, graph.FieldConfidence,
			graph.FieldLanguage, graph.FieldSafetyViolation, graph.FieldExplicitHandoff,
		},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			prompt := fmt.Sprintf(constant.ClassifyPrompt, view.String(graph.FieldQuestion))

			reply, err := provider.Generate(ctx, prompt, llm.WithTemperature(0.1))
			if err != nil {
				return nil, err
			}

			var res classifyResult
			if err := parseJSONResponse(reply, &res); err != nil {
				log.Warn("nodes.classify", "unparseable classification, degrading to zero confidence", map[string]interface{}{
					"turn_id": view.String(graph.FieldTurnID),
					"error":   err.Error(),
				})
				res = classifyResult{Intent: "other", Category: "general", Language: "en"}
			}
			if res.Language == "" {
				res.Language = "en"
			}

			return graph.Delta{
				graph.FieldIntent:          res.Intent,
				graph.FieldCategory:        res.Category,
				graph.FieldConfidence:      res.Confidence,
				graph.FieldLanguage:        res.Language,
				graph.FieldSafetyViolation: res.SafetyViolation,
				graph.FieldExplicitHandoff: res.ExplicitHandoff,
			}, nil
		},
	)
}
