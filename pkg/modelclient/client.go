package modelclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/curricle-systems/core/pkg/kernel/retry"
	"github.com/curricle-systems/core/pkg/llm"
	"github.com/curricle-systems/core/pkg/metering"
	"github.com/curricle-systems/core/pkg/store"
	"github.com/curricle-systems/core/pkg/util/resiliency"
	"github.com/curricle-systems/core/pkg/validate"
)

// Client is the rate-limited, fallback-aware model client spec §4.2
// describes: it picks a provider chain by TaskKind, retries each candidate
// with deterministic backoff, escalates to the next candidate on repeated
// failure, enforces per-tier rate limits and daily call caps, and meters
// each successful GenerateText call made with a non-empty tenant id.
type Client struct {
	registry *Registry
	limiter  *Limiter
	embedder store.Embedder
	meter    metering.Meter
	breakers map[string]*resiliency.CircuitBreaker

	backoffPolicy retry.BackoffPolicy
}

// NewClient wires a Registry (provider fallback chains), a Limiter
// (token-bucket + daily cap), an Embedder, and a Meter into one client.
func NewClient(registry *Registry, limiter *Limiter, embedder store.Embedder, meter metering.Meter) *Client {
	return &Client{
		registry: registry,
		limiter:  limiter,
		embedder: embedder,
		meter:    meter,
		breakers: make(map[string]*resiliency.CircuitBreaker),
		backoffPolicy: retry.BackoffPolicy{
			PolicyID:    "modelclient-default",
			BaseMs:      200,
			MaxMs:       4000,
			MaxJitterMs: 250,
			MaxAttempts: MaxRetryAttempts,
		},
	}
}

func (c *Client) breakerFor(modelID string) *resiliency.CircuitBreaker {
	if b, ok := c.breakers[modelID]; ok {
		return b
	}
	b := resiliency.NewCircuitBreaker(modelID, 5, 60*time.Second)
	c.breakers[modelID] = b
	return b
}

// GenerateText runs a plain chat completion against the fallback chain for
// kind, honoring rate limits, retrying with deterministic backoff, and
// falling through to the next provider when a candidate is exhausted or
// circuit-broken.
func (c *Client) GenerateText(ctx context.Context, tenantID, prompt string, kind TaskKind, temperature float64) (string, error) {
	chain := c.registry.ChainFor(kind)
	if chain == nil {
		return "", &ClientError{Message: "no provider chain configured for task kind " + string(kind)}
	}

	var lastErr error
	for _, candidate := range chain.Candidates() {
		if err := c.limiter.Acquire(ctx, candidate.Tier); err != nil {
			lastErr = err
			continue
		}

		breaker := c.breakerFor(candidate.ModelID)
		if !breaker.Allow() {
			lastErr = &ClientError{ModelID: candidate.ModelID, Message: "circuit open"}
			continue
		}

		content, err := c.tryWithRetries(ctx, candidate, prompt, temperature)
		if err != nil {
			breaker.Failure()
			chain.MarkBad(candidate.ModelID, 30*time.Second)
			lastErr = err
			continue
		}

		breaker.Success()
		c.recordUsage(ctx, tenantID, candidate.ModelID, len(content))
		return content, nil
	}

	if lastErr == nil {
		lastErr = &ClientError{Message: "no provider candidates available"}
	}
	return "", lastErr
}

func (c *Client) tryWithRetries(ctx context.Context, candidate ProviderSpec, prompt string, temperature float64) (string, error) {
	messages := []llm.Message{{Role: "user", Content: prompt}}
	opts := &llm.SamplingOptions{Temperature: temperature}

	var lastErr error
	for attempt := 0; attempt < c.backoffPolicy.MaxAttempts; attempt++ {
		resp, err := candidate.Client.Chat(ctx, messages, nil, opts)
		if err == nil {
			return resp.Content, nil
		}
		lastErr = err

		if attempt == c.backoffPolicy.MaxAttempts-1 {
			break
		}

		delay := retry.ComputeBackoff(retry.BackoffParams{
			PolicyID:     c.backoffPolicy.PolicyID,
			AdapterID:    candidate.ModelID,
			EffectID:     "generate",
			AttemptIndex: attempt,
		}, c.backoffPolicy)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", &ClientError{ModelID: candidate.ModelID, Message: lastErr.Error()}
}

// GenerateStructured calls GenerateText and validates the response against a
// registered JSON schema, stripping a leading/trailing markdown code fence
// and retrying once on parse failure before giving up — models routinely
// wrap structured output in ```json fences despite instructions not to.
func (c *Client) GenerateStructured(ctx context.Context, registry *validate.SchemaRegistry, schemaName, tenantID, prompt string, kind TaskKind, temperature float64, out any) error {
	raw, err := c.GenerateText(ctx, tenantID, prompt, kind, temperature)
	if err != nil {
		return err
	}

	if perr := parseJSONInto(raw, out); perr != nil {
		stripped := stripCodeFence(raw)
		if perr2 := parseJSONInto(stripped, out); perr2 != nil {
			return fmt.Errorf("modelclient: structured output parse failed: %w", perr)
		}
	}

	return registry.ValidateSchema(schemaName, out)
}

func parseJSONInto(raw string, out any) error {
	return json.Unmarshal([]byte(raw), out)
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Embed wraps the backing store.Embedder to produce one vector per input
// text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := c.embedder.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Cosine computes cosine similarity between two vectors of equal length,
// returning -1 when they are empty or mismatched in length (no similarity
// can be asserted).
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return -1
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (c *Client) recordUsage(ctx context.Context, tenantID, modelID string, contentLen int) {
	if c.meter == nil || tenantID == "" {
		return
	}
	_ = c.meter.Record(ctx, metering.Event{
		TenantID:  tenantID,
		EventType: metering.EventLLMToken,
		Quantity:  int64(contentLen),
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{"model_id": modelID},
	})
}
