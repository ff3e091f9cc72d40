package shadow

import (
	"context"
	"fmt"
	"time"

	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
)

// HallucinationAction is the HALLUCINATION_ACTION policy knob (spec §4.7).
type HallucinationAction string

const (
	HallucinationActionBlock HallucinationAction = "BLOCK"
	HallucinationActionWarn  HallucinationAction = "WARN"
)

// Result is the outcome of one shadow run: the computed deltas and the alerts
// they breached. The BLOCK-mode error on a HALLUCINATION_RISK_HIGH alert is
// Run's second return value, not a field of Result.
type Result struct {
	Metrics Metrics
	Alerts  []string
	Skipped bool // true when the circuit breaker was open
}

// Executor runs a shadow generation alongside a primary one, computes the
// 5-metric delta, persists a JSON log, and applies the hallucination gate.
// Grounded on src/production/shadow.py (stub math, authored from spec §4.7)
// and src/production/circuit_breaker.py (the breaker itself).
type Executor struct {
	model      *modelclient.Client
	breaker    *CircuitBreaker
	thresholds Thresholds
	action     HallucinationAction
	logDir     string
	environment string
}

// NewExecutor builds an Executor. logDir is the base storage directory
// shadow logs are written under (baseDir/shadow_logs/...).
func NewExecutor(model *modelclient.Client, breaker *CircuitBreaker, action HallucinationAction, logDir, environment string) *Executor {
	return &Executor{
		model:       model,
		breaker:     breaker,
		thresholds:  DefaultThresholds(),
		action:      action,
		logDir:      logDir,
		environment: environment,
	}
}

// WithThresholds overrides the default alert thresholds.
func (e *Executor) WithThresholds(t Thresholds) *Executor {
	e.thresholds = t
	return e
}

// Run generates a shadow artifact for the same prompt the primary used,
// computes deltas against the primary artifact, persists the log, and
// returns the typed block error when policy is BLOCK and a hallucination
// alert fired.
func (e *Executor) Run(ctx context.Context, tenantID, jobID, prompt, primaryMarkdown string) (Result, error) {
	if !e.breaker.Allow() {
		return Result{Skipped: true}, nil
	}

	// Shadow generation uses a higher temperature than the primary's 0.3 to
	// exercise a distinct sampling path for the same prompt (spec §4.7: "a
	// second model or different temperature/seed").
	shadowMarkdown, err := e.model.GenerateText(ctx, tenantID, prompt, modelclient.TaskStandard, 0.7)
	if err != nil {
		e.breaker.RecordFailure()
		return Result{}, fmt.Errorf("shadow: generation failed: %w", err)
	}
	e.breaker.RecordSuccess()

	primaryTopics := ExtractTopics(primaryMarkdown)
	shadowTopics := ExtractTopics(shadowMarkdown)

	vectors, err := e.model.Embed(ctx, []string{primaryMarkdown, shadowMarkdown})
	if err != nil {
		return Result{}, fmt.Errorf("shadow: embed failed: %w", err)
	}

	metrics := Compute(primaryTopics, shadowTopics, vectors[0], vectors[1])
	alerts := DeriveAlerts(metrics, e.thresholds)

	if err := PersistLog(e.logDir, LogEntry{
		JobID:               jobID,
		Timestamp:           time.Now().UTC(),
		Environment:         e.environment,
		PrimaryTopics:       primaryTopics,
		ShadowTopics:        shadowTopics,
		Metrics:             metrics,
		Alerts:              alerts,
		HallucinationAction: string(e.action),
	}); err != nil {
		return Result{}, err
	}

	result := Result{Metrics: metrics, Alerts: alerts}

	if HasAlert(alerts, AlertHallucinationRisk) && e.action == HallucinationActionBlock {
		return result, &schemas.HallucinationBlockError{
			ExtraTopicRate: metrics.ExtraTopicRate,
			Alerts:         alerts,
			RequestID:      jobID,
		}
	}

	return result, nil
}
