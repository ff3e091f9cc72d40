// Package harness implements the read-only production generation path
// (C9): primary+shadow generation, governance enforcement, grounding
// verification, and shadow-delta hallucination detection wired around a
// single curriculum, grounded on src/production/harness.py's ProductionHarness
// and tests/integration/test_production_harness.py.
package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/curricle-systems/core/pkg/governance"
	"github.com/curricle-systems/core/pkg/grounding"
	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/schemas"
	"github.com/curricle-systems/core/pkg/shadow"
)

// ReadOnlyChecker confirms the database session the harness is using can
// only read. A concrete implementation lives in pkg/database; this package
// only depends on the interface so it stays storage-agnostic.
type ReadOnlyChecker interface {
	VerifyReadOnly(ctx context.Context) error
}

// ProductionHarness runs the 9-step generation path described by the
// production harness. It implements pkg/orchestrator.Harness.
type ProductionHarness struct {
	readOnly   ReadOnlyChecker
	model      *modelclient.Client
	governance *governance.GovernanceEnforcer
	grounding  *grounding.Verifier
	shadow     *shadow.Executor
}

// New builds a ProductionHarness from its constituent seams.
func New(readOnly ReadOnlyChecker, model *modelclient.Client, gov *governance.GovernanceEnforcer, ground *grounding.Verifier, shadowExec *shadow.Executor) *ProductionHarness {
	return &ProductionHarness{
		readOnly:   readOnly,
		model:      model,
		governance: gov,
		grounding:  ground,
		shadow:     shadowExec,
	}
}

func requestTypeFor(format schemas.ContentFormat) governance.RequestType {
	switch format {
	case schemas.FormatSummary:
		return governance.RequestTypeSummary
	case schemas.FormatLessonPlan:
		return governance.RequestTypeLessonPlan
	case schemas.FormatQuiz:
		return governance.RequestTypeQuiz
	default:
		// Worksheets and any future format fail closed to the strictest
		// floor rather than silently inheriting a looser one.
		return governance.RequestTypeCertification
	}
}

// Generate runs the full harness sequence for one curriculum/config pair.
// Step numbers below match spec §4.8's ordering.
func (h *ProductionHarness) Generate(ctx context.Context, tenantID, curriculumID string, competencies []schemas.Competency, config schemas.GenerationConfig, provenance schemas.ProvenanceBlock) (schemas.GenerationOutput, error) {
	// 1. Safety precondition: the session must be read-only.
	if err := h.readOnly.VerifyReadOnly(ctx); err != nil {
		return schemas.GenerationOutput{}, &schemas.DatabaseNotReadOnlyError{Detail: err.Error()}
	}

	// 2. Mode detection.
	sourceAuthority := ""
	if len(provenance.SourceList) > 0 {
		sourceAuthority = provenance.SourceList[0].Authority
	}
	mode := schemas.DetectMode(config.Jurisdiction, sourceAuthority, config.Grade)

	// 3. Primary generation.
	prompt := buildGenerationPrompt(config, competencies)
	markdown, err := h.model.GenerateText(ctx, tenantID, prompt, modelclient.TaskCreative, 0.3)
	if err != nil {
		return schemas.GenerationOutput{}, fmt.Errorf("harness: primary generation failed: %w", err)
	}

	// 4. Governance enforcement.
	govResult, err := h.governance.Enforce(markdown, config.Jurisdiction, mode, provenance)
	if err != nil {
		return schemas.GenerationOutput{}, err
	}
	markdown = govResult.MarkdownContent

	floor := governance.ContextualConfidenceFloor(mode, requestTypeFor(config.ContentFormat))
	lowConfidence := provenance.ExtractionConfidence < floor

	// 5. Competency fetch must be non-empty.
	if len(competencies) == 0 {
		return schemas.GenerationOutput{}, &schemas.CompetencyNotFoundError{CurriculumID: curriculumID}
	}

	// 6. Grounding verify.
	report, err := h.grounding.VerifyArtifact(ctx, markdown, competencies, mode)
	if err != nil {
		return schemas.GenerationOutput{}, fmt.Errorf("harness: grounding verify failed: %w", err)
	}
	if err := grounding.EnforceBlockMode(report); err != nil {
		return schemas.GenerationOutput{}, err
	}

	// 7 & 8. Shadow generation + shadow-delta compute (persists the log
	// internally) and the hallucination gate. shadow.Executor.Run combines
	// both steps since the gate is a direct function of the deltas it just
	// computed.
	jobID := uuid.NewString()
	if _, err := h.shadow.Run(ctx, tenantID, jobID, prompt, markdown); err != nil {
		return schemas.GenerationOutput{}, err
	}

	citations := citationsFor(report, competencies)
	status := schemas.GenerationApproved
	if lowConfidence || report.GroundingRate < schemas.MinApprovedCoverage || len(citations) == 0 {
		status = schemas.GenerationRejected
	}

	out := schemas.GenerationOutput{
		ID:                jobID,
		MarkdownContent:   markdown,
		Citations:         citations,
		Coverage:          report.GroundingRate,
		SourceAttribution: sourceAttributionFor(provenance),
		Status:            status,
	}

	// 9. Return the primary artifact only (the shadow artifact never leaves
	// this function).
	return out, nil
}

func sourceAttributionFor(provenance schemas.ProvenanceBlock) string {
	if len(provenance.SourceList) == 0 {
		return ""
	}
	return schemas.SourceAttributionText(provenance.SourceList[0].URL)
}

// citationsFor builds one citation per competency the grounding pass
// actually matched a sentence to, deduplicated, carrying that competency's
// page range.
func citationsFor(report grounding.ArtifactReport, competencies []schemas.Competency) []schemas.Citation {
	byID := make(map[string]schemas.Competency, len(competencies))
	for _, c := range competencies {
		byID[c.ID] = c
	}

	seen := make(map[string]struct{})
	var citations []schemas.Citation
	for _, check := range report.Checks {
		if !check.IsGrounded || check.SourceCompetencyID == "" {
			continue
		}
		if _, ok := seen[check.SourceCompetencyID]; ok {
			continue
		}
		seen[check.SourceCompetencyID] = struct{}{}
		comp, ok := byID[check.SourceCompetencyID]
		if !ok {
			continue
		}
		citations = append(citations, schemas.Citation{
			CompetencyID:   comp.ID,
			PageRangeStart: comp.PageRangeStart,
			PageRangeEnd:   comp.PageRangeEnd,
		})
	}
	return citations
}

func buildGenerationPrompt(config schemas.GenerationConfig, competencies []schemas.Competency) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s titled %q for %s-level learners at grade %s.\n", config.ContentFormat, config.TopicTitle, config.TargetLevel, config.Grade)
	if config.TopicDescription != "" {
		fmt.Fprintf(&b, "Focus: %s\n", config.TopicDescription)
	}
	b.WriteString("Ground every claim in one of the following competencies:\n")
	for _, c := range competencies {
		fmt.Fprintf(&b, "- %s: %s\n", c.Title, c.Description)
	}
	return b.String()
}
