package schemas

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CurriculumMode distinguishes K-12 ministry curricula from higher-ed
// syllabi; see fetch_curriculum_mode in SPEC_FULL.md.
type CurriculumMode string

const (
	CurriculumModeK12      CurriculumMode = "K12"
	CurriculumModeSyllabus CurriculumMode = "SYLLABUS"
)

// NormalizedRequest is the output of the NormalizeRequest node: a raw
// prompt resolved into typed, normalized fields.
//
// Invariant: Confidence >= 0.7 or the request is rejected at creation.
type NormalizedRequest struct {
	RequestID    string         `json:"request_id"`
	RawPrompt    string         `json:"raw_prompt"`
	Country      string         `json:"country"`
	CountryISO2  string         `json:"country_iso2"`
	Grade        string         `json:"grade"`
	Subject      string         `json:"subject"`
	Language     string         `json:"language"`
	Institution  string         `json:"institution,omitempty"`
	Department   string         `json:"department,omitempty"`
	Mode         CurriculumMode `json:"mode"`
	Confidence   float64        `json:"confidence"`
}

// MinNormalizationConfidence is the creation-time floor for NormalizedRequest.
const MinNormalizationConfidence = 0.7

// NewNormalizedRequest validates the invariant and returns a
// SchemaValidationError when confidence is below the floor.
func NewNormalizedRequest(r NormalizedRequest) (NormalizedRequest, error) {
	if r.Confidence < MinNormalizationConfidence {
		return NormalizedRequest{}, &SchemaValidationError{
			Schema: "NormalizedRequest",
			Errors: []FieldError{{
				Field:   "confidence",
				Message: "must be >= 0.7",
			}},
		}
	}
	return r, nil
}

var titleCaser = cases.Title(language.English)

// NormalizeText applies unicode NFC normalization and title-casing to raw
// country/grade/subject strings pulled out of a free-text prompt.
func NormalizeText(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	return titleCaser.String(strings.ToLower(s))
}

// DetectMode applies the fetch_curriculum_mode heuristic recovered from
// src/production/data_access.py: explicit jurisdiction wording, a .edu-style
// source domain, or tertiary keywords in the grade/institution text all
// indicate a SYLLABUS (university) curriculum; everything else is K12.
func DetectMode(jurisdictionLevel, sourceAuthority, gradeText string) CurriculumMode {
	lowerJurisdiction := strings.ToLower(jurisdictionLevel)
	if strings.Contains(lowerJurisdiction, "university") {
		return CurriculumModeSyllabus
	}
	if strings.Contains(strings.ToLower(sourceAuthority), ".edu") {
		return CurriculumModeSyllabus
	}
	keywords := []string{"university", "college", "institute of technology", "polytechnic"}
	lowerGrade := strings.ToLower(gradeText)
	for _, kw := range keywords {
		if strings.Contains(lowerGrade, kw) {
			return CurriculumModeSyllabus
		}
	}
	return CurriculumModeK12
}
