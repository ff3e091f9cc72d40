// Package orchestrator runs the curriculum pipeline graph (C5): it owns
// GraphState, executes a fixed node sequence with retry/fallback-tier
// escalation, compiles conditional edges as CEL policies via
// pkg/governance.PolicyEngine, and enforces the cost guard and halt states
// defined in pkg/schemas.GraphState.
package orchestrator

import (
	"context"
	"time"

	"github.com/curricle-systems/core/pkg/runtime/budget"
	"github.com/curricle-systems/core/pkg/schemas"
)

// nodeTimeBudget caps a single node attempt's wall-clock time (spec §4.4's
// "cancellation and timeouts": a slow primary-model call should escalate
// the fallback tier and retry within the per-node cap, not hang the
// request). Only TimeLimitMs is meaningful here; GasLimitSteps and
// MemoryLimitBytes are the WASI-sandbox fields budget.ComputeBudget also
// carries and are left at zero.
var nodeTimeBudget = budget.ComputeBudget{TimeLimitMs: 30_000}

// errTimeout is the error code spec §4.4 names for an exhausted node
// timeout budget ("the graph halts with E_TIMEOUT").
const errTimeout = "E_TIMEOUT"

// NodeFunc performs one node's work against the shared state, mutating it
// in place. A returned error is treated as retryable unless the node wraps
// it in a RetryableError with Retryable=false.
type NodeFunc func(ctx context.Context, state *schemas.GraphState) error

// RetryableError lets a node explicitly mark an error as non-retryable
// (e.g. a malformed request), bypassing GraphState's 2-attempt retry cap.
type RetryableError struct {
	Err       error
	Code      string
	Retryable bool
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// NodeSpec names a node in the graph's fixed execution order.
type NodeSpec struct {
	Name string
	Fn   NodeFunc
}

// runNode executes one node with GraphState's retry bookkeeping: on
// failure it records the attempt, and if CanRetryNode still allows it,
// retries immediately (spec §4.4's node-level retry, distinct from
// pkg/modelclient's own per-call retry/backoff which runs inside the node
// function itself).
func runNode(ctx context.Context, state *schemas.GraphState, spec NodeSpec) error {
	for {
		state.RecordNodeStart(spec.Name)
		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(nodeTimeBudget.TimeLimitMs)*time.Millisecond)
		err := spec.Fn(attemptCtx, state)
		timedOut := attemptCtx.Err() == context.DeadlineExceeded
		cancel()
		if err != nil && timedOut {
			err = &RetryableError{Err: err, Code: errTimeout, Retryable: true}
		}
		if err == nil {
			if budgetErr := budget.CheckTime(nodeTimeBudget, time.Since(start)); budgetErr != nil {
				err = &RetryableError{Err: budgetErr, Code: errTimeout, Retryable: true}
			} else {
				return nil
			}
		}

		code, message, retryable := classifyError(err)
		state.RecordNodeFailure(spec.Name, code, message, retryable)
		state.EscalateFallbackTier()

		if retryable && state.CanRetryNode(spec.Name) {
			continue
		}
		return err
	}
}

func classifyError(err error) (code, message string, retryable bool) {
	if re, ok := err.(*RetryableError); ok {
		c := re.Code
		if c == "" {
			c = "node_error"
		}
		return c, re.Error(), re.Retryable
	}
	return "node_error", err.Error(), true
}
