package shadow

import "github.com/curricle-systems/core/pkg/modelclient"

// Metrics is the 5-way delta between a primary and a shadow generation,
// grounded on spec §4.7's formulas (shadow.py's body is a stub; the math is
// authored directly from the specification).
type Metrics struct {
	TopicSetDelta   float64 `json:"topic_set_delta"`
	ExtraTopicRate  float64 `json:"extra_topic_rate"`
	OmissionRate    float64 `json:"omission_rate"`
	OrderingDelta   float64 `json:"ordering_delta"`
	ContentDelta    float64 `json:"content_delta"`
}

// Compute derives the 5 shadow-delta metrics from the primary and shadow
// topic lists (in document order) and their full-text embeddings.
func Compute(primaryTopics, shadowTopics []string, primaryVec, shadowVec []float32) Metrics {
	pSet := toSet(primaryTopics)
	sSet := toSet(shadowTopics)

	union := unionSize(pSet, sSet)
	intersection := intersectionSize(pSet, sSet)

	var topicSetDelta float64
	if union > 0 {
		topicSetDelta = 1 - float64(intersection)/float64(union)
	}

	var extraTopicRate float64
	if len(sSet) > 0 {
		extraTopicRate = float64(countMissing(sSet, pSet)) / float64(len(sSet))
	}

	var omissionRate float64
	if len(pSet) > 0 {
		omissionRate = float64(countMissing(pSet, sSet)) / float64(len(pSet))
	}

	orderingDelta := kendallTauDistance(primaryTopics, shadowTopics)

	contentDelta := 1 - modelclient.Cosine(primaryVec, shadowVec)
	if contentDelta < 0 {
		contentDelta = 0
	}

	return Metrics{
		TopicSetDelta:  topicSetDelta,
		ExtraTopicRate: extraTopicRate,
		OmissionRate:   omissionRate,
		OrderingDelta:  orderingDelta,
		ContentDelta:   contentDelta,
	}
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func unionSize(a, b map[string]struct{}) int {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return len(out)
}

func intersectionSize(a, b map[string]struct{}) int {
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}

// countMissing counts entries of a not present in b.
func countMissing(a, b map[string]struct{}) int {
	count := 0
	for k := range a {
		if _, ok := b[k]; !ok {
			count++
		}
	}
	return count
}

// kendallTauDistance computes the normalized Kendall-tau distance on topics
// common to both primary and shadow, using each list's first-occurrence
// order (spec §4.7: "normalized by n(n-1)/2").
func kendallTauDistance(primary, shadow []string) float64 {
	pRank := rankOf(primary)
	sRank := rankOf(shadow)

	common := make([]string, 0)
	for _, topic := range primary {
		if _, ok := sRank[topic]; ok {
			common = append(common, topic)
		}
	}

	n := len(common)
	if n < 2 {
		return 0
	}

	discordant := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pOrderAgrees := pRank[common[i]] < pRank[common[j]]
			sOrderAgrees := sRank[common[i]] < sRank[common[j]]
			if pOrderAgrees != sOrderAgrees {
				discordant++
			}
		}
	}

	total := float64(n*(n-1)) / 2
	return float64(discordant) / total
}

// rankOf maps each topic to its first-occurrence index.
func rankOf(topics []string) map[string]int {
	out := make(map[string]int, len(topics))
	for i, t := range topics {
		if _, seen := out[t]; !seen {
			out[t] = i
		}
	}
	return out
}
