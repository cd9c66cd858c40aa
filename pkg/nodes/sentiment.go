package nodes

import (
	"context"
	"fmt"

	"github.com/letya999/support-rag-sub001/internal/constant"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/llm"
)

const NodeSentiment = "sentiment"

type sentimentResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewSentimentNode scores the emotional tone of the message. Runs in
// parallel with classification; a parse failure degrades to neutral.
func NewSentimentNode(provider llm.LLMProvider, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeSentiment,
		[]string{graph.FieldQuestion, graph.FieldTurnID},
		[]string{graph.FieldSentimentLabel, graph.FieldSentimentScore},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			prompt := fmt.Sprintf(constant.SentimentPrompt, view.String(graph.FieldQuestion))

			reply, err := provider.Generate(ctx, prompt, llm.WithTemperature(0.1))
			if err != nil {
				return nil, err
			}

			var res sentimentResult
			if err := parseJSONResponse(reply, &res); err != nil {
				log.Warn("nodes.sentiment", "unparseable sentiment, degrading to neutral", map[string]interface{}{
					"turn_id": view.String(graph.FieldTurnID),
					"error":   err.Error(),
				})
				res = sentimentResult{Label: "neutral", Score: 0}
			}

			return graph.Delta{
				graph.FieldSentimentLabel: res.Label,
				graph.FieldSentimentScore: res.Score,
			}, nil
		},
	)
}
