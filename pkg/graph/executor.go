package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

// Escalation terminal reasons produced by the executor itself.
const (
	ReasonNodeTimeout = "node_timeout"
	reasonNodeErrorFm = "node_error:"
)

// Result is the outcome of one plan run.
type Result struct {
	State State
	// Escalated is set when a critical node failed and the turn routed to
	// the escalation terminal instead of completing the plan.
	Escalated bool
	Reason    string
}

// Executor runs a validated plan over per-turn state. It is safe for
// concurrent use: all mutable data lives in the per-run state.
type Executor struct {
	plan *Plan
	log  logger.ILogger
}

// NewExecutor binds a plan to a logger. Plan construction is free of I/O;
// the logger is only consulted during runs.
func NewExecutor(plan *Plan, log logger.ILogger) *Executor {
	return &Executor{plan: plan, log: log}
}

// Run executes every stage in order, merging node deltas through the
// reducer table at each join. Given identical input and a fixed plan the
// merged final state is identical across runs: deltas are merged in stage
// declaration order, never in goroutine completion order.
func (e *Executor) Run(ctx context.Context, initial State) (*Result, error) {
	state := initial.Clone()

	for _, stage := range e.plan.stages {
		if err := ctx.Err(); err != nil {
			// Abandoned request: discard partial state, mutate nothing.
			return nil, err
		}

		deltas := make([]Delta, len(stage))
		errs := make([]error, len(stage))

		var wg sync.WaitGroup
		for i, pn := range stage {
			if !e.shouldRun(pn, state) {
				continue
			}
			wg.Add(1)
			go func(i int, pn *plannedNode) {
				defer wg.Done()
				deltas[i], errs[i] = e.runNode(ctx, pn, state)
			}(i, pn)
		}
		wg.Wait()

		// Join point: apply contributions in declaration order.
		for i, pn := range stage {
			if errs[i] != nil {
				if res, handled := e.handleNodeFailure(pn, errs[i], state); handled {
					return res, nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				continue
			}
			e.plan.reducers.merge(state, deltas[i])
		}
	}

	return &Result{State: state}, nil
}

// RunNode executes a single registered node outside the staged plan with
// the same middleware chain (timing, input filter, output validation,
// timeout). Used for post-decision stages such as generation.
func (e *Executor) RunNode(ctx context.Context, node Node, cfg NodeConfig, state State) (Delta, error) {
	pn := &plannedNode{node: node, cfg: cfg}
	return e.runNode(ctx, pn, state)
}

func (e *Executor) shouldRun(pn *plannedNode, state State) bool {
	for _, gate := range pn.gates {
		if !gate(state) {
			e.log.Debug("graph", "node gated off", map[string]interface{}{
				"node":    pn.node.Name(),
				"turn_id": state.String(FieldTurnID),
			})
			return false
		}
	}
	return true
}

func (e *Executor) runNode(ctx context.Context, pn *plannedNode, state State) (Delta, error) {
	name := pn.node.Name()

	if pn.fusion && e.plan.fusionRequireAll {
		for _, f := range pn.node.Requires() {
			if !state.Has(f) {
				return nil, &NodeError{
					Node:     name,
					Critical: true,
					Err:      errors.New("missing upstream result " + f),
				}
			}
		}
	}

	timeout := pn.cfg.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout()
	}

	handler := chain(pn.node.Run,
		withTiming(e.log, name),
		withTimeout(name, timeout),
		withInputFilter(pn.node.Requires()),
		withOutputValidation(name, pn.node.Produces()),
	)

	delta, err := handler(ctx, state)
	if err != nil {
		var ne *NodeError
		if errors.As(err, &ne) {
			ne.Critical = ne.Critical || pn.cfg.Critical
			return nil, ne
		}
		return nil, &NodeError{Node: name, Critical: pn.cfg.Critical, Err: err}
	}
	return delta, nil
}

// handleNodeFailure applies the failure semantics: non-critical failures
// degrade to an absent contribution, critical ones terminate the run toward
// escalation.
func (e *Executor) handleNodeFailure(pn *plannedNode, err error, state State) (*Result, bool) {
	var ne *NodeError
	if !errors.As(err, &ne) {
		return nil, false
	}

	e.log.Warn("graph", "node failed", map[string]interface{}{
		"node":     ne.Node,
		"turn_id":  state.String(FieldTurnID),
		"critical": ne.Critical,
		"error":    ne.Err.Error(),
	})

	if !ne.Critical {
		return nil, false
	}

	reason := reasonNodeErrorFm + ne.Node
	if errors.Is(ne.Err, ErrNodeTimeout) {
		reason = ReasonNodeTimeout
	}
	return &Result{State: state, Escalated: true, Reason: reason}, true
}

func (e *Executor) defaultTimeout() time.Duration {
	return e.plan.defaultTimeout
}
