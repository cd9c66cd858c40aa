package nodes

import (
	"context"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/dialog"
	"github.com/letya999/support-rag-sub001/pkg/graph"
)

const NodeRules = "rules"

// NewRulesNode runs the dialog state machine over the signals the analysis
// stage produced. The engine instance is looked up per run so a pipeline
// reload swaps rules without rebuilding the node table.
func NewRulesNode(engine func() *dialog.Engine, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeRules,
		[]string{
			graph.FieldIntent, graph.FieldCategory, graph.FieldConfidence,
			graph.FieldSentimentLabel, graph.FieldSentimentScore,
			graph.FieldSafetyViolation, graph.FieldExplicitHandoff,
			graph.FieldDialogState, graph.FieldAttemptCount,
			graph.FieldTurnID,
		},
		[]string{graph.FieldDialogState, graph.FieldAttemptCount},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			eval := engine().Evaluate(dialog.Signals{
				"intent":           view.String(graph.FieldIntent),
				"category":         view.String(graph.FieldCategory),
				"confidence":       view.Float(graph.FieldConfidence),
				"sentiment_label":  view.String(graph.FieldSentimentLabel),
				"sentiment_score":  view.Float(graph.FieldSentimentScore),
				"safety_violation": view.Bool(graph.FieldSafetyViolation),
				"explicit_handoff": view.Bool(graph.FieldExplicitHandoff),
				"dialog_state":     view.String(graph.FieldDialogState),
				"attempt_count":    view.Int(graph.FieldAttemptCount),
			})

			attempts := view.Int(graph.FieldAttemptCount) + eval.AttemptDelta
			if eval.ResetAttempts {
				attempts = 0
			}

			log.Debug("nodes.rules", "dialog transition", map[string]interface{}{
				"turn_id": view.String(graph.FieldTurnID),
				"rule":    eval.Rule,
				"from":    view.String(graph.FieldDialogState),
				"to":      eval.State,
			})

			return graph.Delta{
				graph.FieldDialogState:  eval.State,
				graph.FieldAttemptCount: attempts,
			}, nil
		},
	)
}
