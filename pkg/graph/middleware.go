package graph

import (
	"context"
	"time"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

// Handler is the invocation shape middleware wraps around a node run.
type Handler func(ctx context.Context, s State) (Delta, error)

// Middleware decorates a node handler. The executor composes a fixed,
// ordered chain per node: timing, input filter, execute, output validation,
// error handling. Each stage is independently testable.
type Middleware func(next Handler) Handler

// chain composes middlewares outermost-first.
func chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// withTiming logs node duration with the node name and turn id.
func withTiming(log logger.ILogger, name string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, s State) (Delta, error) {
			start := time.Now()
			delta, err := next(ctx, s)
			log.Debug("graph", "node finished", map[string]interface{}{
				"node":        name,
				"turn_id":     s.String(FieldTurnID),
				"duration_ms": time.Since(start).Milliseconds(),
				"failed":      err != nil,
			})
			return delta, err
		}
	}
}

// withInputFilter restricts the view to the node's declared inputs.
func withInputFilter(requires []string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, s State) (Delta, error) {
			return next(ctx, s.view(requires))
		}
	}
}

// withOutputValidation rejects fields outside the declared contract so a
// node cannot grow the state uncontrolled. Failing validation fails the
// node, not the turn.
func withOutputValidation(name string, produces []string) Middleware {
	declared := make(map[string]bool, len(produces))
	for _, f := range produces {
		declared[f] = true
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, s State) (Delta, error) {
			delta, err := next(ctx, s)
			if err != nil {
				return nil, err
			}
			for f := range delta {
				if !declared[f] {
					return nil, &NodeError{Node: name, Err: ErrUndeclaredOutput}
				}
			}
			return delta, nil
		}
	}
}

// withTimeout bounds the run. The node goroutine is handed a cancelled
// context on expiry; the executor stops waiting for it either way.
func withTimeout(name string, d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, s State) (Delta, error) {
			runCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				delta Delta
				err   error
			}
			done := make(chan result, 1)
			go func() {
				delta, err := next(runCtx, s)
				done <- result{delta, err}
			}()

			select {
			case r := <-done:
				return r.delta, r.err
			case <-runCtx.Done():
				if ctx.Err() != nil {
					// Turn cancelled, not a node timeout.
					return nil, ctx.Err()
				}
				return nil, &NodeError{Node: name, Err: ErrNodeTimeout}
			}
		}
	}
}
