package grounding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curricle-systems/core/pkg/kernel"
	"github.com/curricle-systems/core/pkg/metering"
	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
	"github.com/curricle-systems/core/pkg/store"
)

// fakeEmbedder returns [1,0] for any text containing "aligned", [0,1] for
// everything else, matching test_production_grounding.py's fixture.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) (store.Embedding, error) {
	if strings.Contains(strings.ToLower(text), "aligned") {
		return store.Embedding{1.0, 0.0}, nil
	}
	return store.Embedding{0.0, 1.0}, nil
}

func newTestClient() *modelclient.Client {
	chain := modelclient.NewChain(modelclient.ProviderSpec{ModelID: "stub", Client: nil, Tier: modelclient.TierFast})
	registry := modelclient.NewRegistry(map[modelclient.TaskKind]*modelclient.Chain{
		modelclient.TaskStandard: chain,
	})
	limiter := modelclient.NewLimiter(kernel.NewInMemoryLimiterStore(), map[modelclient.ModelTier]modelclient.TierLimits{
		modelclient.TierFast: {RPM: 6000, DailyCallCap: 0},
	})
	return modelclient.NewClient(registry, limiter, fakeEmbedder{}, noopMeter{})
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

func competency(id, text string) schemas.Competency {
	return schemas.Competency{ID: id, Title: text, SourceChunkIDs: []string{"c"}, LearningOutcomes: []string{"o"}}
}

func TestVerifyArtifact_K12FailsWithUngroundedSentence(t *testing.T) {
	v := NewVerifier(newTestClient(), WithThreshold(0.85))
	comps := []schemas.Competency{competency("c1", "This is an aligned competency topic")}
	artifact := "This sentence is aligned with the topic. This sentence is unrelated to everything."

	report, err := v.VerifyArtifact(context.Background(), artifact, comps, schemas.CurriculumModeK12)
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalSentences)
	require.Equal(t, 1, report.GroundedCount)
	require.Equal(t, 1, report.UngroundedCount)
	require.Equal(t, "FAIL", report.Verdict)
	require.False(t, report.IsClean())
}

func TestVerifyArtifact_K12PassesWithPerfectGrounding(t *testing.T) {
	v := NewVerifier(newTestClient())
	comps := []schemas.Competency{competency("c1", "This is an aligned competency topic")}
	artifact := "This sentence is aligned with the curriculum. Another aligned sentence here."

	report, err := v.VerifyArtifact(context.Background(), artifact, comps, schemas.CurriculumModeK12)
	require.NoError(t, err)
	require.Equal(t, "PASS", report.Verdict)
	require.True(t, report.IsClean())
}

func TestVerifyArtifact_UniversityAllowsSmallDeviation(t *testing.T) {
	v := NewVerifier(newTestClient())
	comps := []schemas.Competency{competency("c1", "This is an aligned competency topic")}

	sentences := make([]string, 0, 20)
	for i := 0; i < 19; i++ {
		sentences = append(sentences, "Sentence number is aligned with the curriculum")
	}
	sentences = append(sentences, "This sentence is unrelated to anything")
	artifact := strings.Join(sentences, ". ") + "."

	report, err := v.VerifyArtifact(context.Background(), artifact, comps, schemas.CurriculumModeSyllabus)
	require.NoError(t, err)
	require.Equal(t, 20, report.TotalSentences)
	require.Equal(t, 19, report.GroundedCount)
	require.Equal(t, 1, report.UngroundedCount)
	require.InDelta(t, 0.95, report.GroundingRate, 0.0001)
	require.Equal(t, "PASS", report.Verdict)
}

func TestVerifyArtifact_UniversityRejectsLargeDeviation(t *testing.T) {
	v := NewVerifier(newTestClient())
	comps := []schemas.Competency{competency("c1", "This is an aligned competency topic")}

	sentences := make([]string, 0, 20)
	for i := 0; i < 18; i++ {
		sentences = append(sentences, "Sentence number is aligned with the curriculum")
	}
	sentences = append(sentences, "This sentence is unrelated to anything")
	sentences = append(sentences, "Another unrelated sentence appears here too")
	artifact := strings.Join(sentences, ". ") + "."

	report, err := v.VerifyArtifact(context.Background(), artifact, comps, schemas.CurriculumModeSyllabus)
	require.NoError(t, err)
	require.InDelta(t, 0.90, report.GroundingRate, 0.0001)
	require.Equal(t, "FAIL", report.Verdict)
}

func TestVerifyArtifact_EmptyArtifactPasses(t *testing.T) {
	v := NewVerifier(newTestClient())
	report, err := v.VerifyArtifact(context.Background(), "", nil, schemas.CurriculumModeK12)
	require.NoError(t, err)
	require.Equal(t, "PASS", report.Verdict)
}

func TestEnforceBlockMode(t *testing.T) {
	failReport := ArtifactReport{Verdict: "FAIL", UngroundedSentences: []string{"bad sentence"}}
	err := EnforceBlockMode(failReport)
	require.Error(t, err)

	var violation *schemas.GroundingViolationError
	require.ErrorAs(t, err, &violation)
	require.Equal(t, []string{"bad sentence"}, violation.UngroundedSentences)

	passReport := ArtifactReport{Verdict: "PASS"}
	require.NoError(t, EnforceBlockMode(passReport))
}
