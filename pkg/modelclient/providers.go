package modelclient

import (
	"sync"
	"time"

	"github.com/curricle-systems/core/pkg/llm"
)

// ProviderSpec names one candidate model within a fallback chain: the llm.Client
// that talks to it, a stable id for logging/metering, and the tier it belongs
// to for rate limiting.
type ProviderSpec struct {
	ModelID string
	Client  llm.Client
	Tier    ModelTier
}

// Chain is an immutable ordered list of candidate providers for one TaskKind,
// plus a dynamic "bad model" set scoped to the process lifetime. Spec §4.2 is
// explicit that a mutable registry of model ids is the wrong shape here —
// the ordering itself is the policy, only the exclusion set should mutate.
type Chain struct {
	specs []ProviderSpec

	mu      sync.Mutex
	badUntil map[string]time.Time
}

// NewChain builds a fallback chain from an ordered candidate list. specs[0]
// is tried first; later entries are fallbacks.
func NewChain(specs ...ProviderSpec) *Chain {
	return &Chain{
		specs:    specs,
		badUntil: make(map[string]time.Time),
	}
}

// MarkBad excludes a model from candidate selection until cooldown elapses,
// used after all of a candidate's retries fail, whatever the error, so the
// chain stops offering a model that is currently failing.
func (c *Chain) MarkBad(modelID string, cooldown time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.badUntil[modelID] = time.Now().Add(cooldown)
}

func (c *Chain) isBad(modelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.badUntil[modelID]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(c.badUntil, modelID)
		return false
	}
	return true
}

// Candidates returns the specs in fallback order, skipping any currently
// marked bad. When every candidate is marked bad it falls back to returning
// the full ordered list rather than an empty chain, since an exhausted
// exclusion set should not itself become an outage.
func (c *Chain) Candidates() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(c.specs))
	for _, s := range c.specs {
		if !c.isBad(s.ModelID) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return c.specs
	}
	return out
}

// Registry maps each TaskKind to its fallback chain, the "candidate model
// list per task kind" spec §4.2 calls for.
type Registry struct {
	chains map[TaskKind]*Chain
}

// NewRegistry builds a Registry from a chain-per-task-kind table.
func NewRegistry(chains map[TaskKind]*Chain) *Registry {
	return &Registry{chains: chains}
}

// ChainFor returns the fallback chain for a task kind, falling back to
// TaskStandard's chain when the kind has no dedicated entry.
func (r *Registry) ChainFor(kind TaskKind) *Chain {
	if c, ok := r.chains[kind]; ok {
		return c
	}
	return r.chains[TaskStandard]
}
