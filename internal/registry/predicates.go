package registry

import (
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/store"
)

// Predicates is the static table of conditional-edge guards the pipeline
// file may reference by name.
func Predicates() graph.PredicateTable {
	return graph.PredicateTable{
		// Retrieval is pointless for chitchat and for turns that are
		// already headed to an operator.
		"needs_retrieval": func(s graph.State) bool {
			if s.Bool(graph.FieldSafetyViolation) || s.Bool(graph.FieldExplicitHandoff) {
				return false
			}
			return s.String(graph.FieldIntent) != "chitchat"
		},
		"has_docs": func(s graph.State) bool {
			docs, _ := s[graph.FieldDocs].([]store.Document)
			return len(docs) > 0
		},
	}
}
