package schemas

// GenerationStatus is the verdict on a GenerationOutput.
type GenerationStatus string

const (
	GenerationApproved GenerationStatus = "approved"
	GenerationRejected GenerationStatus = "rejected"
)

// Citation links a markdown assertion to a competency and the page range it
// was extracted from.
type Citation struct {
	CompetencyID   string `json:"competency_id"`
	PageRangeStart int    `json:"page_range_start"`
	PageRangeEnd   int    `json:"page_range_end"`
}

// ContentFormat is the requested artifact shape.
type ContentFormat string

const (
	FormatLessonPlan ContentFormat = "lesson_plan"
	FormatWorksheet  ContentFormat = "worksheet"
	FormatQuiz       ContentFormat = "quiz"
	FormatSummary    ContentFormat = "summary"
)

// TargetLevel is Bloom-style difficulty targeting for a requested artifact.
type TargetLevel string

const (
	LevelFoundational TargetLevel = "Foundational"
	LevelProficient   TargetLevel = "Proficient"
	LevelAdvanced     TargetLevel = "Advanced"
	LevelExpert       TargetLevel = "Expert"
)

// GenerationConfig is the caller-supplied configuration for generate().
type GenerationConfig struct {
	TopicTitle       string        `json:"topic_title"`
	TopicDescription string        `json:"topic_description"`
	ContentFormat    ContentFormat `json:"content_format"`
	TargetLevel      TargetLevel   `json:"target_level"`
	Jurisdiction     string        `json:"jurisdiction"`
	Grade            string        `json:"grade"`
	RNGSeed          int64         `json:"rng_seed"`
}

// MinApprovedCoverage is the coverage floor an approved GenerationOutput
// must meet.
const MinApprovedCoverage = 0.8

// GenerationOutput is the artifact produced by the Generate node.
//
// Invariant: approved ⇒ coverage >= 0.8 && len(citations) >= 1.
type GenerationOutput struct {
	ID                 string           `json:"id"`
	MarkdownContent    string           `json:"markdown_content"`
	Citations          []Citation       `json:"citations"`
	Coverage           float64          `json:"coverage"`
	SourceAttribution  string           `json:"source_attribution"`
	Status             GenerationStatus `json:"status"`
}

// Validate enforces the approved-implies-coverage-and-citations invariant.
func (g GenerationOutput) Validate() error {
	if g.Status != GenerationApproved {
		return nil
	}
	var errs []FieldError
	if g.Coverage < MinApprovedCoverage {
		errs = append(errs, FieldError{Field: "coverage", Message: "approved output requires coverage >= 0.8"})
	}
	if len(g.Citations) < 1 {
		errs = append(errs, FieldError{Field: "citations", Message: "approved output requires >= 1 citation"})
	}
	if g.SourceAttribution == "" {
		errs = append(errs, FieldError{Field: "source_attribution", Message: "approved output requires a source attribution block"})
	}
	if len(errs) > 0 {
		return &SchemaValidationError{Schema: "GenerationOutput", Errors: errs}
	}
	return nil
}

// SourceAttributionText formats the mandatory source-attribution line the
// way scenario 1 of the spec's end-to-end tests expects it.
func SourceAttributionText(sourceURL string) string {
	return "Based on official curriculum from: " + sourceURL
}
