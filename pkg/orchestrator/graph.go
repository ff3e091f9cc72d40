package orchestrator

import (
	"context"

	"github.com/curricle-systems/core/pkg/schemas"
)

// Graph wires the fixed node sequence, the CEL conditional edges, and the
// cost guard into the single Run entry point.
type Graph struct {
	deps  *Deps
	edges *EdgeEngine
	specs map[string]NodeSpec
}

// NewGraph builds a Graph. edges may be nil in tests that only exercise
// node bodies without conditional routing; Run then decides the vault hit
// directly from VaultFound and MinVaultConfidenceForImmediateServe.
func NewGraph(deps *Deps, edges *EdgeEngine) *Graph {
	g := &Graph{deps: deps, edges: edges, specs: make(map[string]NodeSpec)}
	for _, spec := range []NodeSpec{
		{Name: NodeNormalizeRequest, Fn: normalizeRequestNode(deps)},
		{Name: NodeResolveJurisdiction, Fn: resolveJurisdictionNode(deps)},
		{Name: NodeVaultLookup, Fn: vaultLookupNode(deps)},
		{Name: NodeEnqueueColdStart, Fn: enqueueColdStartNode(deps)},
		{Name: NodeScoutAgent, Fn: scoutAgentNode(deps)},
		{Name: NodeGatekeeperAgent, Fn: gatekeeperAgentNode(deps)},
		{Name: NodeArchitectAgent, Fn: architectAgentNode(deps)},
		{Name: NodeEmbedder, Fn: embedderNode(deps)},
		{Name: NodeVaultStore, Fn: vaultStoreNode(deps)},
		{Name: NodeGenerate, Fn: generateNode(deps)},
		{Name: NodeHumanAlert, Fn: humanAlertNode(deps)},
	} {
		g.specs[spec.Name] = spec
	}
	return g
}

func (g *Graph) vaultHit(ctx context.Context, state *schemas.GraphState) bool {
	if g.edges == nil {
		return state.VaultFound && state.VaultConfidence >= schemas.MinVaultConfidenceForImmediateServe
	}
	return g.edges.VaultHit(ctx, state)
}

// Run executes the graph to completion, returning the terminal GraphState.
// It never returns an error: every failure routes to human_alert or halts,
// both of which are first-class terminal states reflected in the returned
// state's fields (HasError, RequiresHumanAlert).
func (g *Graph) Run(ctx context.Context, state *schemas.GraphState) *schemas.GraphState {
	order := []string{NodeNormalizeRequest, NodeResolveJurisdiction, NodeVaultLookup}
	for _, name := range order {
		if g.runAndCheckHalt(ctx, state, name) {
			return state
		}
	}

	if !g.vaultHit(ctx, state) {
		coldStart := []string{
			NodeEnqueueColdStart,
			NodeScoutAgent,
			NodeGatekeeperAgent,
			NodeArchitectAgent,
			NodeEmbedder,
			NodeVaultStore,
		}
		for _, name := range coldStart {
			if g.runAndCheckHalt(ctx, state, name) {
				return state
			}
		}
	}

	g.runAndCheckHalt(ctx, state, NodeGenerate)
	return state
}

// runAndCheckHalt executes one node (runNode already escalates the fallback
// tier per failed attempt), then routes to human_alert when the node
// finally failed, set RequiresHumanAlert, or ShouldHalt reports true.
// Returns true when the caller should stop advancing through the graph.
func (g *Graph) runAndCheckHalt(ctx context.Context, state *schemas.GraphState, name string) bool {
	spec, ok := g.specs[name]
	if !ok {
		return false
	}

	err := runNode(ctx, state, spec)

	if err != nil || state.RequiresHumanAlert || state.ShouldHalt() {
		_ = runNode(ctx, state, g.specs[NodeHumanAlert])
		return true
	}
	return false
}
