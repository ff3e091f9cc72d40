package harness

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/curricle-systems/core/pkg/governance"
	"github.com/curricle-systems/core/pkg/grounding"
	"github.com/curricle-systems/core/pkg/kernel"
	"github.com/curricle-systems/core/pkg/llm"
	"github.com/curricle-systems/core/pkg/metering"
	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
	"github.com/curricle-systems/core/pkg/shadow"
	"github.com/curricle-systems/core/pkg/store"
)

type allowReadOnly struct{}

func (allowReadOnly) VerifyReadOnly(ctx context.Context) error { return nil }

type denyReadOnly struct{ err error }

func (d denyReadOnly) VerifyReadOnly(ctx context.Context) error { return d.err }

// scriptedLLM returns responses[0] on the first Chat call and responses[1]
// on the second (primary, then shadow).
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition, options *llm.SamplingOptions) (*llm.Response, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return &llm.Response{Content: s.responses[idx]}, nil
}

// fakeEmbedder returns [1,0] for text containing "aligned" or boilerplate
// disclaimer wording (so a governance-injected disclaimer doesn't itself
// register as an ungrounded claim), [0,1] otherwise.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) (store.Embedding, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "aligned") || strings.Contains(lower, "disclaimer") || strings.Contains(lower, "instructor") {
		return store.Embedding{1, 0}, nil
	}
	return store.Embedding{0, 1}, nil
}

type noopMeter struct{}

func (noopMeter) Record(ctx context.Context, event metering.Event) error { return nil }
func (noopMeter) RecordBatch(ctx context.Context, events []metering.Event) error {
	return nil
}
func (noopMeter) GetUsage(ctx context.Context, tenantID string, period metering.Period) (*metering.Usage, error) {
	return nil, nil
}
func (noopMeter) GetUsageByType(ctx context.Context, tenantID string, eventType metering.EventType, period metering.Period) (int64, error) {
	return 0, nil
}

func newTestHarness(t *testing.T, responses []string, action shadow.HallucinationAction) *ProductionHarness {
	t.Helper()
	chain := modelclient.NewChain(modelclient.ProviderSpec{
		ModelID: "primary", Client: &scriptedLLM{responses: responses}, Tier: modelclient.TierFast,
	})
	registry := modelclient.NewRegistry(map[modelclient.TaskKind]*modelclient.Chain{
		modelclient.TaskCreative: chain,
		modelclient.TaskStandard: chain,
	})
	limiter := modelclient.NewLimiter(kernel.NewInMemoryLimiterStore(), map[modelclient.ModelTier]modelclient.TierLimits{
		modelclient.TierFast: {RPM: 6000, DailyCallCap: 0},
	})
	model := modelclient.NewClient(registry, limiter, fakeEmbedder{}, noopMeter{})

	gov := governance.NewGovernanceEnforcer()
	ground := grounding.NewVerifier(model, grounding.WithThreshold(0.85))
	breaker := shadow.NewCircuitBreaker(3, time.Minute)
	shadowExec := shadow.NewExecutor(model, breaker, action, t.TempDir(), "test")

	return New(allowReadOnly{}, model, gov, ground, shadowExec)
}

func testCompetency(id string) schemas.Competency {
	return schemas.Competency{
		ID:               id,
		Title:            "Aligned competency",
		Description:      "An aligned description",
		LearningOutcomes: []string{"outcome"},
		SourceChunkIDs:   []string{"chunk-1"},
		PageRangeStart:   1,
		PageRangeEnd:     2,
	}
}

func testProvenance() schemas.ProvenanceBlock {
	return schemas.ProvenanceBlock{
		CurriculumID:         "cur-1",
		SourceList:           []schemas.SourceCitation{{URL: "http://example.gov/curriculum", Authority: "moe.gov"}},
		ExtractionConfidence: 0.95,
	}
}

func TestGenerate_RejectsNonReadOnlySession(t *testing.T) {
	h := newTestHarness(t, []string{"# Aligned\n\nThis is aligned content."}, shadow.HallucinationActionWarn)
	h.readOnly = denyReadOnly{err: errors.New("write role detected")}

	_, err := h.Generate(context.Background(), "tenant-1", "cur-1", []schemas.Competency{testCompetency("c1")}, schemas.GenerationConfig{}, testProvenance())

	var roErr *schemas.DatabaseNotReadOnlyError
	require.ErrorAs(t, err, &roErr)
}

func TestGenerate_RejectsEmptyCompetencies(t *testing.T) {
	h := newTestHarness(t, []string{"# Aligned\n\nThis is aligned content."}, shadow.HallucinationActionWarn)

	_, err := h.Generate(context.Background(), "tenant-1", "cur-1", nil, schemas.GenerationConfig{}, testProvenance())

	var notFound *schemas.CompetencyNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGenerate_ApprovesWellGroundedArtifact(t *testing.T) {
	markdown := "# Aligned\n\nThis sentence is aligned with the curriculum. Another aligned sentence follows here."
	h := newTestHarness(t, []string{markdown, markdown}, shadow.HallucinationActionWarn)

	out, err := h.Generate(context.Background(), "tenant-1", "cur-1", []schemas.Competency{testCompetency("c1")}, schemas.GenerationConfig{
		TopicTitle: "Cells", ContentFormat: schemas.FormatSummary, TargetLevel: schemas.LevelFoundational, Grade: "9",
	}, testProvenance())

	require.NoError(t, err)
	require.Equal(t, schemas.GenerationApproved, out.Status)
	require.NotEmpty(t, out.Citations)
	require.GreaterOrEqual(t, out.Coverage, schemas.MinApprovedCoverage)
	require.NotEmpty(t, out.SourceAttribution)
}

func TestGenerate_RejectsUngroundedArtifact(t *testing.T) {
	markdown := "# Unrelated\n\nThis sentence has nothing to do with the material. Neither does this one."
	h := newTestHarness(t, []string{markdown, markdown}, shadow.HallucinationActionWarn)

	_, err := h.Generate(context.Background(), "tenant-1", "cur-1", []schemas.Competency{testCompetency("c1")}, schemas.GenerationConfig{
		ContentFormat: schemas.FormatSummary,
	}, testProvenance())

	var violation *schemas.GroundingViolationError
	require.ErrorAs(t, err, &violation)
}

func TestGenerate_InjectsDisclaimerForUniversityJurisdiction(t *testing.T) {
	markdown := "# Aligned\n\nThis sentence is aligned with the curriculum. Another aligned sentence follows here."
	h := newTestHarness(t, []string{markdown, markdown}, shadow.HallucinationActionWarn)

	out, err := h.Generate(context.Background(), "tenant-1", "cur-1", []schemas.Competency{testCompetency("c1")}, schemas.GenerationConfig{
		ContentFormat: schemas.FormatSummary, Jurisdiction: "university",
	}, testProvenance())

	require.NoError(t, err)
	require.Contains(t, out.MarkdownContent, "Disclaimer")
}

func TestGenerate_HallucinationBlockPropagatesInBlockMode(t *testing.T) {
	primary := "# Aligned\n\nThis sentence is aligned with the curriculum. Another aligned sentence follows here."
	shadowOut := "# Aligned\n\n# Extra One\n\n# Extra Two\n\nThis sentence is aligned with the curriculum. Another aligned sentence follows here."
	h := newTestHarness(t, []string{primary, shadowOut}, shadow.HallucinationActionBlock)

	_, err := h.Generate(context.Background(), "tenant-1", "cur-1", []schemas.Competency{testCompetency("c1")}, schemas.GenerationConfig{
		ContentFormat: schemas.FormatSummary,
	}, testProvenance())

	var blockErr *schemas.HallucinationBlockError
	require.ErrorAs(t, err, &blockErr)
}
