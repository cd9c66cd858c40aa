package graph

import (
	"time"
)

// NodeDecl is the static declaration of one node in a plan definition.
type NodeDecl struct {
	Name      string `json:"name"`
	TimeoutMs int    `json:"timeout_ms"`
	Critical  bool   `json:"critical"`
}

// EdgeDecl declares a transition between nodes. An empty When is a static
// edge (ordering only); a named When makes the edge conditional: the target
// node runs only when the predicate holds over the state at that point.
type EdgeDecl struct {
	From string `json:"from"`
	To   string `json:"to"`
	When string `json:"when,omitempty"`
}

// Definition is the complete static declaration the executor builds a plan
// from. It is data (loaded from the pipeline config file), not code.
type Definition struct {
	// EntryFields are supplied with the initial state, e.g. question and
	// conversation_id.
	EntryFields []string `json:"entry_fields"`
	// Stages order execution; nodes inside one stage form a parallel group
	// and are joined before the next stage runs.
	Stages [][]string `json:"stages"`
	Nodes  []NodeDecl `json:"nodes"`
	Edges  []EdgeDecl `json:"edges"`
	// Reducers maps state fields to named merge functions.
	Reducers         map[string]string `json:"reducers"`
	DefaultTimeoutMs int               `json:"default_timeout_ms"`
	// FusionRequireAll selects the policy for nodes whose inputs come from
	// several upstream producers when one contribution is absent at run
	// time: true fails the node as critical, false degrades to whatever is
	// present.
	FusionRequireAll bool `json:"fusion_require_all"`
}

type plannedNode struct {
	node   Node
	cfg    NodeConfig
	gates  []Predicate
	fusion bool // requires inputs from more than one upstream producer
}

// Plan is a validated, executable pipeline. Built once at startup or reload;
// immutable afterwards.
type Plan struct {
	stages           [][]*plannedNode
	reducers         ReducerTable
	defaultTimeout   time.Duration
	fusionRequireAll bool
	producers        map[string]string // field -> node name
}

// BuildPlan validates a definition against the node registry and predicate
// table and compiles it. All checks here are static: a definition that
// passes never fails these conditions per-request.
func BuildPlan(def Definition, reg *Registry, preds PredicateTable) (*Plan, error) {
	if len(def.Stages) == 0 {
		return nil, validationErrorf("no stages declared")
	}

	decls := make(map[string]NodeDecl, len(def.Nodes))
	for _, d := range def.Nodes {
		if _, dup := decls[d.Name]; dup {
			return nil, validationErrorf("node %s declared twice", d.Name)
		}
		decls[d.Name] = d
	}

	entry := make(map[string]bool, len(def.EntryFields))
	for _, f := range def.EntryFields {
		entry[f] = true
	}

	// First pass: resolve nodes, order stages, check produced-field
	// ownership (exactly one producer per field).
	stageOf := make(map[string]int)
	producers := make(map[string]string)
	var stages [][]*plannedNode
	for si, names := range def.Stages {
		var stage []*plannedNode
		for _, name := range names {
			if _, seen := stageOf[name]; seen {
				return nil, validationErrorf("node %s appears in more than one stage", name)
			}
			decl, declared := decls[name]
			if !declared {
				return nil, validationErrorf("stage node %s has no declaration", name)
			}
			node, registered := reg.Lookup(name)
			if !registered {
				return nil, validationErrorf("node %s is not registered", name)
			}
			for _, f := range node.Produces() {
				if owner, taken := producers[f]; taken {
					return nil, validationErrorf("field %s produced by both %s and %s", f, owner, name)
				}
				producers[f] = name
			}
			stageOf[name] = si
			stage = append(stage, &plannedNode{
				node: node,
				cfg: NodeConfig{
					Timeout:  time.Duration(decl.TimeoutMs) * time.Millisecond,
					Critical: decl.Critical,
				},
			})
		}
		stages = append(stages, stage)
	}

	// Second pass: every required input must be an entry field or produced
	// by a node in a strictly earlier stage. A node needing results from
	// two independent producers (fusion) is therefore rejected at build
	// time unless both producers are present and ordered before it.
	for si, stage := range stages {
		for _, pn := range stage {
			upstream := make(map[string]bool)
			for _, f := range pn.node.Requires() {
				if entry[f] {
					continue
				}
				owner, produced := producers[f]
				if !produced {
					return nil, validationErrorf("node %s requires %s which nothing produces", pn.node.Name(), f)
				}
				if stageOf[owner] >= si {
					return nil, validationErrorf("node %s requires %s before %s produces it", pn.node.Name(), f, owner)
				}
				upstream[owner] = true
			}
			pn.fusion = len(upstream) > 1
		}
	}

	// Third pass: edges. Conditional edges gate their target node.
	for _, e := range def.Edges {
		fromStage, ok := stageOf[e.From]
		if !ok {
			return nil, validationErrorf("edge from unknown node %s", e.From)
		}
		toStage, ok := stageOf[e.To]
		if !ok {
			return nil, validationErrorf("edge to unknown node %s", e.To)
		}
		if fromStage >= toStage {
			return nil, validationErrorf("edge %s -> %s goes backwards", e.From, e.To)
		}
		if e.When == "" {
			continue
		}
		pred, ok := preds[e.When]
		if !ok {
			return nil, validationErrorf("edge %s -> %s references unknown predicate %s", e.From, e.To, e.When)
		}
		for _, pn := range stages[toStage] {
			if pn.node.Name() == e.To {
				pn.gates = append(pn.gates, pred)
			}
		}
	}

	reducers, err := BuildReducerTable(def.Reducers)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}

	defaultTimeout := time.Duration(def.DefaultTimeoutMs) * time.Millisecond
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}

	return &Plan{
		stages:           stages,
		reducers:         reducers,
		defaultTimeout:   defaultTimeout,
		fusionRequireAll: def.FusionRequireAll,
		producers:        producers,
	}, nil
}

// Producer returns the node name owning a field, for diagnostics.
func (p *Plan) Producer(field string) string {
	return p.producers[field]
}
