package orchestrator

import (
	"context"
	"fmt"

	"github.com/curricle-systems/core/pkg/governance"
	"github.com/curricle-systems/core/pkg/schemas"
)

// Conditional edge policy ids, compiled once at startup.
const (
	PolicyVaultHit      = "edge-vault-hit"
	PolicyIngestionOK   = "edge-ingestion-ok"
)

// vaultHitExpr routes straight to generation when the vault already holds
// a confident curriculum; below the floor (or absent), the graph falls
// through to the ingestion chain instead.
const vaultHitExpr = `context.vault_found && context.vault_confidence >= 0.8`

// ingestionOKExpr decides whether an ingestion-stage agent's status allows
// the graph to proceed to the next stage rather than diverting to the
// human-alert terminal node.
const ingestionOKExpr = `context.agent_status == "success" || context.agent_status == "low_confidence"`

// EdgeEngine compiles and evaluates the graph's conditional edges as CEL
// programs, validated deterministic-safe via governance.CELDPValidator
// before being loaded into the policy engine.
type EdgeEngine struct {
	policy *governance.PolicyEngine
}

// NewEdgeEngine compiles the graph's fixed set of conditional edges.
func NewEdgeEngine() (*EdgeEngine, error) {
	pe, err := governance.NewPolicyEngine()
	if err != nil {
		return nil, err
	}

	validator := governance.NewCELDPValidator()
	for _, expr := range []string{vaultHitExpr, ingestionOKExpr} {
		if issues := validator.ValidateExpression(expr); len(issues) > 0 {
			return nil, fmt.Errorf("orchestrator: edge expression %q failed cel-dp-v1 validation: %s", expr, issues[0].Message)
		}
	}

	if err := pe.LoadPolicy(PolicyVaultHit, vaultHitExpr); err != nil {
		return nil, err
	}
	if err := pe.LoadPolicy(PolicyIngestionOK, ingestionOKExpr); err != nil {
		return nil, err
	}

	return &EdgeEngine{policy: pe}, nil
}

func (e *EdgeEngine) evaluate(ctx context.Context, policyID string, input map[string]interface{}) bool {
	decision, err := e.policy.Evaluate(ctx, policyID, governance.AccessRequest{Context: input})
	if err != nil {
		return false
	}
	return decision.Verdict == "ALLOW"
}

// VaultHit reports whether the graph should skip ingestion and generate
// directly from the vault's cached curriculum.
func (e *EdgeEngine) VaultHit(ctx context.Context, state *schemas.GraphState) bool {
	return e.evaluate(ctx, PolicyVaultHit, map[string]interface{}{
		"vault_found":      state.VaultFound,
		"vault_confidence": state.VaultConfidence,
	})
}

// IngestionOK reports whether an ingestion agent's status permits moving
// to the next pipeline stage.
func (e *EdgeEngine) IngestionOK(ctx context.Context, status schemas.AgentStatus) bool {
	return e.evaluate(ctx, PolicyIngestionOK, map[string]interface{}{
		"agent_status": string(status),
	})
}
