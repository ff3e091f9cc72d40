package shadow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompute_IdenticalTopicsAndVectorsHaveZeroDelta(t *testing.T) {
	primary := []string{"Photosynthesis", "Cellular Respiration", "Mitosis"}
	shadow := []string{"Photosynthesis", "Cellular Respiration", "Mitosis"}
	vec := []float32{1, 0, 0}

	m := Compute(primary, shadow, vec, vec)
	require.Zero(t, m.TopicSetDelta)
	require.Zero(t, m.ExtraTopicRate)
	require.Zero(t, m.OmissionRate)
	require.Zero(t, m.OrderingDelta)
	require.Zero(t, m.ContentDelta)
}

func TestCompute_ExtraTopicInShadowRaisesExtraTopicRate(t *testing.T) {
	primary := []string{"Photosynthesis", "Mitosis"}
	shadow := []string{"Photosynthesis", "Mitosis", "Quantum Entanglement"}

	m := Compute(primary, shadow, []float32{1, 0}, []float32{1, 0})
	require.InDelta(t, 1.0/3.0, m.ExtraTopicRate, 0.0001)
	require.Zero(t, m.OmissionRate)
	require.InDelta(t, 1.0/3.0, m.TopicSetDelta, 0.0001)
}

func TestCompute_MissingTopicInShadowRaisesOmissionRate(t *testing.T) {
	primary := []string{"Photosynthesis", "Mitosis", "Genetics"}
	shadow := []string{"Photosynthesis", "Mitosis"}

	m := Compute(primary, shadow, []float32{1, 0}, []float32{1, 0})
	require.InDelta(t, 1.0/3.0, m.OmissionRate, 0.0001)
	require.Zero(t, m.ExtraTopicRate)
}

func TestCompute_ReorderedCommonTopicsRaiseOrderingDelta(t *testing.T) {
	primary := []string{"A", "B", "C", "D"}
	shadow := []string{"D", "C", "B", "A"}

	m := Compute(primary, shadow, []float32{1, 0}, []float32{1, 0})
	require.InDelta(t, 1.0, m.OrderingDelta, 0.0001)
}

func TestCompute_SingleCommonTopicHasZeroOrderingDelta(t *testing.T) {
	primary := []string{"A"}
	shadow := []string{"A"}

	m := Compute(primary, shadow, []float32{1, 0}, []float32{1, 0})
	require.Zero(t, m.OrderingDelta)
}

func TestCompute_DivergentVectorsRaiseContentDelta(t *testing.T) {
	primary := []string{"A"}
	shadow := []string{"A"}

	m := Compute(primary, shadow, []float32{1, 0}, []float32{0, 1})
	require.InDelta(t, 1.0, m.ContentDelta, 0.0001)
}

func TestCompute_EmptyTopicListsHaveZeroSetDeltas(t *testing.T) {
	m := Compute(nil, nil, []float32{1, 0}, []float32{1, 0})
	require.Zero(t, m.TopicSetDelta)
	require.Zero(t, m.ExtraTopicRate)
	require.Zero(t, m.OmissionRate)
}

func TestDeriveAlerts_BreachesFireExpectedNames(t *testing.T) {
	m := Metrics{
		TopicSetDelta:  0.5,
		OrderingDelta:  0.5,
		ContentDelta:   0.5,
		ExtraTopicRate: 0.5,
		OmissionRate:   0.5,
	}
	alerts := DeriveAlerts(m, DefaultThresholds())
	require.ElementsMatch(t, []string{
		AlertTopicSetDeltaHigh,
		AlertOrderingDeltaHigh,
		AlertContentDeltaHigh,
		AlertHallucinationRisk,
		AlertOmissionRateHigh,
	}, alerts)
}

func TestDeriveAlerts_WithinThresholdsProducesNoAlerts(t *testing.T) {
	m := Metrics{}
	alerts := DeriveAlerts(m, DefaultThresholds())
	require.Empty(t, alerts)
}

func TestHasAlert(t *testing.T) {
	require.True(t, HasAlert([]string{AlertOmissionRateHigh}, AlertOmissionRateHigh))
	require.False(t, HasAlert([]string{AlertOmissionRateHigh}, AlertContentDeltaHigh))
}
