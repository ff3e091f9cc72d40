package governance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
)

// AccessRequest describes one CEL policy evaluation input: an actor taking
// an action against a resource, plus freeform context (e.g. the orchestrator
// passes GraphState fields here for should_halt/fallback-tier policies).
type AccessRequest struct {
	PrincipalID string
	Action      string
	ResourceID  string
	Context     map[string]interface{}
}

// Decision is the verdict returned by a PolicyEngine evaluation.
type Decision struct {
	ID        string
	Timestamp time.Time
	SubjectID string
	Action    string
	Resource  string
	Verdict   string // "ALLOW" | "DENY"
	Reason    string
}

// PolicyEngine is the single point of truth for all "Allow/Deny" decisions.
// It replaces the legacy RBAC/ABAC engines with a unified CEL-based evaluator.
type PolicyEngine struct {
	mu          sync.RWMutex
	env         *cel.Env
	policySet   map[string]cel.Program
	definitions map[string]string // ID -> CEL Source
}

// NewPolicyEngine initializes the CEL environment.
func NewPolicyEngine() (*PolicyEngine, error) {
	// Define standard attributes available in all policies
	env, err := cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("action", types.StringType),
			decls.NewVariable("resource", types.StringType),
			decls.NewVariable("principal", types.StringType),
			decls.NewVariable("context", types.NewMapType(types.StringType, types.DynType)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	return &PolicyEngine{
		env:         env,
		policySet:   make(map[string]cel.Program),
		definitions: make(map[string]string),
	}, nil
}

// LoadPolicy compiles and registers a policy.
func (pe *PolicyEngine) LoadPolicy(policyID, source string) error {
	pe.mu.Lock()
	defer pe.mu.Unlock()

	ast, issues := pe.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("policy compilation failed: %w", issues.Err())
	}

	prg, err := pe.env.Program(ast)
	if err != nil {
		return fmt.Errorf("program construction failed: %w", err)
	}

	pe.policySet[policyID] = prg
	pe.definitions[policyID] = source
	return nil
}

// ListDefinitions returns a copy of all loaded policy definitions (ID → source).
func (pe *PolicyEngine) ListDefinitions() map[string]string {
	pe.mu.RLock()
	defer pe.mu.RUnlock()
	out := make(map[string]string, len(pe.definitions))
	for k, v := range pe.definitions {
		out[k] = v
	}
	return out
}

// Evaluate checks a request against the policy named policyID. An empty
// policyID is not evaluated against any policy and yields DENY.
// Returns a Decision.
func (pe *PolicyEngine) Evaluate(ctx context.Context, policyID string, req AccessRequest) (*Decision, error) {
	pe.mu.RLock()
	defer pe.mu.RUnlock()

	decision := &Decision{
		ID:        fmt.Sprintf("dec-%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		SubjectID: req.PrincipalID,
		Action:    req.Action,
		Resource:  req.ResourceID,
		Verdict:   "DENY", // Default deny
	}

	// Prepare CEL input
	input := map[string]interface{}{
		"action":    req.Action,
		"resource":  req.ResourceID,
		"principal": req.PrincipalID,
		"context":   req.Context,
	}

	// 1. Specific Policy Evaluation
	if policyID != "" {
		prg, exists := pe.policySet[policyID]
		if !exists {
			decision.Reason = fmt.Sprintf("Policy %s not found", policyID)
			return decision, nil
		}

		out, _, err := prg.Eval(input)
		if err != nil {
			decision.Reason = fmt.Sprintf("Evaluation error: %v", err)
			return decision, nil // Fail closed
		}

		if allowed, ok := out.Value().(bool); ok && allowed {
			decision.Verdict = "ALLOW"
			decision.Reason = fmt.Sprintf("Allowed by policy %s", policyID)
		} else {
			decision.Verdict = "DENY"
			decision.Reason = fmt.Sprintf("Denied by policy %s", policyID)
		}
		return decision, nil
	}

	// 2. Global Evaluation (if no specific policy requested, check all? Or deny?)
	// For MVP, we deny if no policy specified.
	decision.Reason = "No specific policy requested"
	return decision, nil
}
