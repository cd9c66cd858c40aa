package graph

import (
	"context"
	"time"
)

// Node is a named, pure async transform over the pipeline state. A node
// declares the fields it reads and the fields it may produce; the executor
// hands it a view limited to the declared inputs and rejects outputs outside
// the declared contract.
type Node interface {
	Name() string
	Requires() []string
	Produces() []string
	Run(ctx context.Context, view State) (Delta, error)
}

// RunFunc adapts a function to the Node contract. Used by the static node
// registration table assembled at startup.
type RunFunc func(ctx context.Context, view State) (Delta, error)

type funcNode struct {
	name     string
	requires []string
	produces []string
	run      RunFunc
}

// NewNode builds a Node from its contract declaration and a run function.
func NewNode(name string, requires, produces []string, run RunFunc) Node {
	return &funcNode{name: name, requires: requires, produces: produces, run: run}
}

func (n *funcNode) Name() string                                      { return n.name }
func (n *funcNode) Requires() []string                                { return n.requires }
func (n *funcNode) Produces() []string                                { return n.produces }
func (n *funcNode) Run(ctx context.Context, v State) (Delta, error)   { return n.run(ctx, v) }

// NodeConfig carries the per-node execution policy from the plan
// declaration.
type NodeConfig struct {
	// Timeout bounds one run. Zero means the plan default applies.
	Timeout time.Duration
	// Critical nodes abort the turn to the escalation terminal on timeout
	// or error instead of degrading to an empty delta.
	Critical bool
	// Gate names the predicate that must hold for the node to run. Empty
	// means the node always runs.
	Gate string
}

// Registry is the static node registration table: name to constructor
// result. Assembled explicitly at startup, never discovered by scanning.
type Registry struct {
	nodes map[string]Node
}

// NewNodeRegistry returns an empty registration table.
func NewNodeRegistry() *Registry {
	return &Registry{nodes: make(map[string]Node)}
}

// Register adds a node under its name. Later registrations replace earlier
// ones, which keeps tests free to swap fakes in.
func (r *Registry) Register(n Node) {
	r.nodes[n.Name()] = n
}

// Lookup returns the node registered under name.
func (r *Registry) Lookup(name string) (Node, bool) {
	n, ok := r.nodes[name]
	return n, ok
}

// Predicate decides a conditional edge from the current state.
type Predicate func(State) bool

// PredicateTable is the static registration table for conditional edge
// predicates, keyed by the name used in plan declarations.
type PredicateTable map[string]Predicate
