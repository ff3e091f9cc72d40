// Package modelclient implements the rate-limited model client (C3): a
// token-bucket limiter per model tier, generate_structured/generate_text/
// embed/cosine, retry with backoff, and a provider fallback chain with task
// routing. It wraps pkg/llm (provider HTTP clients + router heuristic),
// pkg/kernel (token bucket + Redis backing store), pkg/kernel/retry
// (deterministic backoff), pkg/util/resiliency (circuit breaker), and
// pkg/metering (usage recording). The daily call counter lives in Limiter.
package modelclient

import "github.com/curricle-systems/core/pkg/schemas"

// TaskKind classifies a generation call the way spec §4.2 describes: the
// client picks a candidate model list for that kind, then applies the
// fallback chain.
type TaskKind string

const (
	TaskReasoning TaskKind = "reasoning"
	TaskCreative  TaskKind = "creative"
	TaskFormatting TaskKind = "formatting"
	TaskStandard  TaskKind = "standard"
)

// ModelTier maps a fallback tier to the rate-limiting/budget bucket it
// draws from — distinct from schemas.FallbackTier only in that it names the
// rate-limit bucket, not the graph's escalation state.
type ModelTier string

const (
	TierFast ModelTier = "fast"
	TierSmart ModelTier = "smart"
	TierSafe ModelTier = "safe"
)

// TierForFallback maps a GraphState fallback tier onto the model tier the
// provider registry should draw candidates from.
func TierForFallback(t schemas.FallbackTier) ModelTier {
	switch t {
	case schemas.FallbackTier1:
		return TierSmart
	case schemas.FallbackTier2:
		return TierSafe
	default:
		return TierFast
	}
}

// MaxRetryAttempts is the retry ceiling from spec §4.2 (base 2 exponential
// backoff, up to 3 attempts).
const MaxRetryAttempts = 3

// MaxRetryAfterSeconds is a 30-second ceiling for a provider's Retry-After
// header. No code path reads Retry-After or consults this constant: a
// failing candidate is retried on the deterministic backoff schedule and
// then left for the next model in the fallback chain.
const MaxRetryAfterSeconds = 30

// ClientError is the typed error raised after the last retry attempt is
// exhausted.
type ClientError struct {
	ModelID    string
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return "modelclient: " + e.ModelID + ": " + e.Message
}
