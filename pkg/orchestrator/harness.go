package orchestrator

import (
	"context"

	"github.com/curricle-systems/core/pkg/schemas"
)

// Harness runs the read-only generation path (C9): primary+shadow
// generation, governance enforcement, and grounding verification around a
// single curriculum. The Generate node delegates to it rather than calling
// the model client directly, so the governance/grounding/shadow stack can be
// swapped or extended without touching graph wiring.
type Harness interface {
	Generate(ctx context.Context, tenantID, curriculumID string, competencies []schemas.Competency, config schemas.GenerationConfig, provenance schemas.ProvenanceBlock) (schemas.GenerationOutput, error)
}
