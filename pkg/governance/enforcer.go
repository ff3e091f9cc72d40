package governance

import (
	"fmt"
	"strings"

	"github.com/curricle-systems/core/pkg/schemas"
)

// RequestType names the generated-artifact shape the contextual confidence
// floor table (spec §4.6) is keyed on; distinct from schemas.ContentFormat
// because the floor table's rows (certification, quiz/exam/objectives)
// don't line up one-to-one with the content-shape enum.
type RequestType string

const (
	RequestTypeSummary       RequestType = "summary"
	RequestTypeLessonPlan    RequestType = "lesson_plan"
	RequestTypeQuiz          RequestType = "quiz"
	RequestTypeCertification RequestType = "certification"
)

// contextualFloors is the (mode, request_type) -> confidence floor table
// from spec §4.6.
var contextualFloors = map[schemas.CurriculumMode]map[RequestType]float64{
	schemas.CurriculumModeK12: {
		RequestTypeSummary:       0.85,
		RequestTypeLessonPlan:    0.90,
		RequestTypeQuiz:          0.90,
		RequestTypeCertification: 0.95,
	},
	schemas.CurriculumModeSyllabus: {
		RequestTypeSummary:       0.75,
		RequestTypeLessonPlan:    0.80,
		RequestTypeQuiz:          0.85,
		RequestTypeCertification: 0.90,
	},
}

// ContextualConfidenceFloor looks up the (mode, requestType) floor from the
// table in spec §4.6, defaulting to the strictest K-12 certification floor
// when the pair is unrecognized (fail closed rather than silently permit).
func ContextualConfidenceFloor(mode schemas.CurriculumMode, requestType RequestType) float64 {
	if byType, ok := contextualFloors[mode]; ok {
		if floor, ok := byType[requestType]; ok {
			return floor
		}
	}
	return contextualFloors[schemas.CurriculumModeK12][RequestTypeCertification]
}

// disclaimerMarker lets InjectDisclaimer detect whether a disclaimer is
// already present, so a retried generate() call never double-injects.
const disclaimerMarker = "This content represents one valid syllabus interpretation"

// GovernanceResult carries the enforced artifact plus the governance
// metadata attached for audit, mirroring the teacher's pattern of returning
// a transformed value alongside a structured verdict rather than mutating
// in place.
type GovernanceResult struct {
	MarkdownContent      string
	ProvenanceValidated  bool
	DisclaimerInjected   bool
	LowConfidenceFlagged bool
}

// GovernanceEnforcer attaches provenance, injects jurisdiction-appropriate
// disclaimers, and derives contextual confidence floors for a generated
// artifact (C7), grounded on src/production/governance.py.
type GovernanceEnforcer struct{}

// NewGovernanceEnforcer builds a GovernanceEnforcer. It holds no state: every
// method is a pure function of its arguments, matching governance.py's
// module-level functions.
func NewGovernanceEnforcer() *GovernanceEnforcer {
	return &GovernanceEnforcer{}
}

// Enforce runs the 3-step governance pipeline from spec §4.6: validate
// provenance, attach it to artifact metadata (the caller persists
// provenance alongside the artifact; this method only verifies it), and
// inject a disclaimer for university/syllabus jurisdictions.
func (e *GovernanceEnforcer) Enforce(markdownContent string, jurisdictionLevel string, mode schemas.CurriculumMode, provenance schemas.ProvenanceBlock) (GovernanceResult, error) {
	if err := provenance.Validate(); err != nil {
		return GovernanceResult{}, fmt.Errorf("governance: provenance validation failed: %w", err)
	}

	result := GovernanceResult{
		MarkdownContent:      markdownContent,
		ProvenanceValidated:  true,
		LowConfidenceFlagged: provenance.ExtractionConfidence < 1.0,
	}

	if requiresDisclaimer(jurisdictionLevel, mode) && !strings.Contains(markdownContent, disclaimerMarker) {
		result.MarkdownContent = injectDisclaimer(markdownContent, jurisdictionLevel)
		result.DisclaimerInjected = true
	}

	return result, nil
}

func requiresDisclaimer(jurisdictionLevel string, mode schemas.CurriculumMode) bool {
	if mode == schemas.CurriculumModeSyllabus {
		return true
	}
	level := schemas.JurisdictionLevel(strings.ToLower(jurisdictionLevel))
	return level == schemas.JurisdictionUniversity || level == schemas.JurisdictionDepartment
}

func injectDisclaimer(markdownContent, jurisdictionLevel string) string {
	disclaimer := fmt.Sprintf(
		"> **Disclaimer:** %s for this %s course. It reflects one instructor's approach and is not an official, canonical curriculum.\n\n",
		disclaimerMarker, jurisdictionLevel,
	)
	return disclaimer + markdownContent
}
