// Package grounding implements the per-sentence semantic grounding check
// (C6): every sentence of a generated artifact must map, by cosine
// similarity, to at least one source competency. Grounded on
// src/production/grounding.py.
package grounding

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
)

// DefaultSimilarityThreshold is the production cosine-similarity floor for a
// dense embedding provider.
const DefaultSimilarityThreshold = 0.7

// ReferenceSimilarityThreshold is used by reference/offline verification
// runs that favor precision over recall.
const ReferenceSimilarityThreshold = 0.8

// JaccardFallbackThreshold applies when the backing embedder is a
// bag-of-words/Jaccard provider, where 0.7-0.8 is unreachable for anything
// short of near-duplicate text.
const JaccardFallbackThreshold = 0.3

// minSentenceLength drops fragments too short to carry a claim (spec §4.5).
const minSentenceLength = 11

var sentenceSplitRE = regexp.MustCompile(`(?:[.!?])\s+`)

// CheckResult is the grounding verdict for a single sentence.
type CheckResult struct {
	Sentence             string  `json:"sentence"`
	IsGrounded            bool    `json:"is_grounded"`
	SourceCompetencyID    string  `json:"source_competency_id,omitempty"`
	ConfidenceScore       float64 `json:"confidence_score"`
	Method                string  `json:"method"` // "semantic" or "none"
}

// ArtifactReport is the grounding verdict for a full artifact.
type ArtifactReport struct {
	TotalSentences      int      `json:"total_sentences"`
	GroundedCount       int      `json:"grounded_count"`
	UngroundedCount     int      `json:"ungrounded_count"`
	GroundingRate       float64  `json:"grounding_rate"`
	UngroundedSentences []string `json:"ungrounded_sentences"`
	Verdict             string   `json:"verdict"` // "PASS" or "FAIL"
	Checks              []CheckResult `json:"checks"`
}

// IsClean reports whether every sentence was grounded.
func (r ArtifactReport) IsClean() bool {
	return r.UngroundedCount == 0
}

// Verifier checks artifact text against a competency set via the backing
// model client's embedding endpoint.
type Verifier struct {
	model     *modelclient.Client
	threshold float64
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithThreshold overrides DefaultSimilarityThreshold, e.g. for a
// Jaccard-fallback embedder (JaccardFallbackThreshold) or a reference run
// (ReferenceSimilarityThreshold).
func WithThreshold(threshold float64) Option {
	return func(v *Verifier) { v.threshold = threshold }
}

// NewVerifier builds a Verifier backed by model's embedding endpoint.
func NewVerifier(model *modelclient.Client, opts ...Option) *Verifier {
	v := &Verifier{model: model, threshold: DefaultSimilarityThreshold}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// competencyText flattens a competency to a single string for embedding,
// mirroring the {'id': str, 'text': str} shape grounding.py consumes.
func competencyText(c schemas.Competency) string {
	var b strings.Builder
	b.WriteString(c.Title)
	if c.Description != "" {
		b.WriteString(". ")
		b.WriteString(c.Description)
	}
	for _, outcome := range c.LearningOutcomes {
		b.WriteString(". ")
		b.WriteString(outcome)
	}
	return b.String()
}

// splitSentences is the terminator-based splitter from spec §4.5: split on
// .!? followed by whitespace, drop fragments under minSentenceLength.
func splitSentences(text string) []string {
	raw := sentenceSplitRE.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) >= minSentenceLength {
			out = append(out, s)
		}
	}
	return out
}

// VerifyArtifact runs the full grounding check described in spec §4.5: split
// into sentences, embed competencies and sentences in one call, match each
// sentence to its best competency by cosine similarity, and derive a verdict
// from mode (k12 strict, syllabus/university >= 95%).
func (v *Verifier) VerifyArtifact(ctx context.Context, artifactText string, competencies []schemas.Competency, mode schemas.CurriculumMode) (ArtifactReport, error) {
	sentences := splitSentences(artifactText)
	if len(sentences) == 0 {
		return ArtifactReport{Verdict: "PASS"}, nil
	}

	compTexts := make([]string, len(competencies))
	for i, c := range competencies {
		compTexts[i] = competencyText(c)
	}

	all := make([]string, 0, len(compTexts)+len(sentences))
	all = append(all, compTexts...)
	all = append(all, sentences...)

	vectors, err := v.model.Embed(ctx, all)
	if err != nil {
		return ArtifactReport{}, fmt.Errorf("grounding: embed call failed: %w", err)
	}

	compVectors := vectors[:len(compTexts)]
	sentVectors := vectors[len(compTexts):]

	checks := make([]CheckResult, 0, len(sentences))
	ungrounded := make([]string, 0)
	grounded := 0

	for i, sentence := range sentences {
		bestID, bestScore := v.bestMatch(sentVectors[i], compVectors, competencies)
		isGrounded := bestScore >= v.threshold

		method := "none"
		matchedID := ""
		if isGrounded {
			method = "semantic"
			matchedID = bestID
			grounded++
		} else {
			ungrounded = append(ungrounded, sentence)
		}

		checks = append(checks, CheckResult{
			Sentence:           sentence,
			IsGrounded:         isGrounded,
			SourceCompetencyID: matchedID,
			ConfidenceScore:    bestScore,
			Method:             method,
		})
	}

	total := len(sentences)
	rate := float64(grounded) / float64(total)

	verdict := "FAIL"
	if mode == schemas.CurriculumModeK12 {
		if len(ungrounded) == 0 {
			verdict = "PASS"
		}
	} else if rate >= 0.95 {
		verdict = "PASS"
	}

	return ArtifactReport{
		TotalSentences:      total,
		GroundedCount:       grounded,
		UngroundedCount:     len(ungrounded),
		GroundingRate:       rate,
		UngroundedSentences: ungrounded,
		Verdict:             verdict,
		Checks:              checks,
	}, nil
}

func (v *Verifier) bestMatch(sentVec []float32, compVecs [][]float32, competencies []schemas.Competency) (string, float64) {
	bestScore := -1.0
	bestID := ""
	for i, compVec := range compVecs {
		score := modelclient.Cosine(sentVec, compVec)
		if score > bestScore {
			bestScore = score
			if i < len(competencies) {
				bestID = competencies[i].ID
			}
		}
	}
	return bestID, bestScore
}

// EnforceBlockMode converts a FAIL verdict into a GroundingViolationError,
// the shape spec §4.5 says the harness raises in block mode.
func EnforceBlockMode(report ArtifactReport) error {
	if report.Verdict == "FAIL" {
		return &schemas.GroundingViolationError{UngroundedSentences: report.UngroundedSentences}
	}
	return nil
}
