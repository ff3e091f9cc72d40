package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/curricle-systems/core/pkg/artifacts"
	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/provenance"
	"github.com/curricle-systems/core/pkg/schemas"
	"github.com/curricle-systems/core/pkg/validate"
)

// sourceFirewallPolicy spotlights web-sourced PDF text in clear delimiters
// before it reaches the reasoning model, and blocks content an upstream
// caller has already flagged adversarial (no such path exists yet, but the
// rule costs nothing to carry).
var sourceFirewallPolicy = &provenance.FirewallPolicy{
	PolicyID: "architect-source-text",
	Name:     "Architect source text",
	Rules: []provenance.FirewallRule{
		{RuleID: "spotlight-web", TrustLevel: provenance.TrustLevelUntrusted, Action: "transform", Transform: provenance.TransformSpotlight},
		{RuleID: "block-adversarial", TrustLevel: provenance.TrustLevelAdversarial, Action: "block"},
	},
	DefaultAction: "allow",
}

// injectionBlockConfidence is the indicator confidence above which extracted
// PDF text is treated as adversarial and withheld from the reasoning model,
// rather than merely spotlighted.
const injectionBlockConfidence = 0.85

// MaxPDFBytes caps the curriculum PDF download at 20MB (spec §4.3); a
// document larger than this is refused rather than streamed to disk
// unbounded.
const MaxPDFBytes = 20 * 1024 * 1024

// MaxExtractionChars truncates the extracted text before it is handed to
// the reasoning-tier model, mirroring architect.py's 30000-char cap.
const MaxExtractionChars = 30000

var competencyHeaderPattern = regexp.MustCompile(`(?i)Competency\s+(\d+\.?\d*):?`)

// PDFTextExtractor turns downloaded PDF bytes into page-tagged text plus a
// page count; production wires a real PDF text layer, tests a fixture.
type PDFTextExtractor interface {
	ExtractText(pdfBytes []byte) (text string, pageCount int, err error)
}

// Architect downloads a curriculum PDF, extracts its text, and derives
// competencies via a reasoning-tier LLM call with a regex rule-based
// fallback.
type Architect struct {
	httpClient *http.Client
	store      artifacts.Store
	extractor  PDFTextExtractor
	model      *modelclient.Client
	schemas    *validate.SchemaRegistry
}

// NewArchitect builds an Architect.
func NewArchitect(httpClient *http.Client, store artifacts.Store, extractor PDFTextExtractor, model *modelclient.Client, schemaRegistry *validate.SchemaRegistry) *Architect {
	return &Architect{httpClient: httpClient, store: store, extractor: extractor, model: model, schemas: schemaRegistry}
}

// extractedCompetency is the schema GenerateStructured validates the
// reasoning model's JSON response against.
type extractedCompetency struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	LearningOutcomes  []string `json:"learning_outcomes"`
	PageRange         string   `json:"page_range"`
	Confidence        float64  `json:"confidence"`
}

type extractionResponse struct {
	Competencies []extractedCompetency `json:"competencies"`
}

const extractionSchemaName = "ExtractionResponse"

const extractionSchemaDoc = `{
  "type": "object",
  "required": ["competencies"],
  "properties": {
    "competencies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description", "learning_outcomes", "page_range", "confidence"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "learning_outcomes": {"type": "array", "items": {"type": "string"}},
          "page_range": {"type": "string"},
          "confidence": {"type": "number"}
        }
      }
    }
  }
}`

// Parse downloads sourceURL, extracts text, and derives competencies.
func (a *Architect) Parse(ctx context.Context, tenantID, jobID, curriculumID, sourceURL string) schemas.ArchitectOutput {
	pdfBytes, err := a.download(ctx, sourceURL)
	if err != nil {
		return schemas.ArchitectOutput{JobID: jobID, SourceURL: sourceURL, Status: schemas.AgentStatusFailed}
	}

	if _, err := a.store.Store(ctx, pdfBytes); err != nil {
		return schemas.ArchitectOutput{JobID: jobID, SourceURL: sourceURL, Status: schemas.AgentStatusFailed}
	}

	text, _, err := a.extractor.ExtractText(pdfBytes)
	if err != nil || strings.TrimSpace(text) == "" {
		return schemas.ArchitectOutput{JobID: jobID, SourceURL: sourceURL, Status: schemas.AgentStatusFailed}
	}

	competencies := a.extractCompetencies(ctx, tenantID, curriculumID, sourceURL, text)
	out := schemas.ArchitectOutput{JobID: jobID, SourceURL: sourceURL, Competencies: competencies}
	out.DeriveStatus()
	return out
}

func (a *Architect) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("architect: download failed with status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, MaxPDFBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxPDFBytes {
		return nil, fmt.Errorf("architect: PDF exceeds %d byte cap", MaxPDFBytes)
	}
	return data, nil
}

func (a *Architect) extractCompetencies(ctx context.Context, tenantID, curriculumID, sourceURL, text string) []schemas.Competency {
	if len(text) > MaxExtractionChars {
		text = text[:MaxExtractionChars] + "\n[truncated...]"
	}

	text, blocked := screenSourceText(sourceURL, text)
	if blocked {
		return ruleBasedExtraction(curriculumID, "")
	}

	if a.model != nil && a.schemas != nil {
		var resp extractionResponse
		prompt := buildExtractionPrompt(text)
		err := a.model.GenerateStructured(ctx, a.schemas, extractionSchemaName, tenantID, prompt, modelclient.TaskReasoning, 0.1, &resp)
		if err == nil && len(resp.Competencies) > 0 {
			return toCompetencies(curriculumID, resp.Competencies)
		}
	}

	return ruleBasedExtraction(curriculumID, text)
}

// screenSourceText runs extracted PDF text through a provenance envelope as
// untrusted web content: high-confidence prompt-injection indicators (e.g.
// "ignore previous instructions" embedded in a scraped syllabus) get the
// segment withheld entirely rather than handed to the reasoning model;
// lower-confidence hits still get spotlighted in clear delimiters so the
// model can distinguish source data from instructions.
func screenSourceText(sourceURL, text string) (screened string, blocked bool) {
	builder := provenance.NewBuilder()
	builder.SetFirewallPolicy(sourceFirewallPolicy)
	seg := builder.AddWebContent(text, sourceURL)

	maxConfidence := 0.0
	for _, ind := range seg.InjectionIndicators {
		if ind.Confidence > maxConfidence {
			maxConfidence = ind.Confidence
		}
	}
	if maxConfidence >= injectionBlockConfidence {
		return "", true
	}
	return seg.Content, false
}

func buildExtractionPrompt(text string) string {
	return "Extract all learning competencies from the following curriculum text as JSON matching the ExtractionResponse schema.\n\nCURRICULUM TEXT:\n" + text
}

func toCompetencies(curriculumID string, extracted []extractedCompetency) []schemas.Competency {
	out := make([]schemas.Competency, 0, len(extracted))
	for _, e := range extracted {
		outcomes := e.LearningOutcomes
		if len(outcomes) == 0 {
			outcomes = []string{"General learning outcome"}
		}
		start, end := parsePageRange(e.PageRange)
		out = append(out, schemas.Competency{
			CurriculumID:         curriculumID,
			Title:                e.Title,
			Description:          e.Description,
			LearningOutcomes:     outcomes,
			PageRangeStart:       start,
			PageRangeEnd:         end,
			SourceChunkIDs:       []string{fmt.Sprintf("chunk-%d-%d", start, end)},
			ExtractionConfidence: e.Confidence,
		})
	}
	return out
}

func parsePageRange(pr string) (int, int) {
	pr = strings.TrimSpace(pr)
	if pr == "" {
		return 1, 1
	}
	parts := strings.SplitN(pr, "-", 2)
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 1, 1
	}
	if len(parts) == 1 {
		return start, start
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return start, start
	}
	return start, end
}

// ruleBasedExtraction is the fallback path when the reasoning-tier LLM call
// fails: a regex scan for "Competency X.Y:" blocks with bullet-prefixed
// learning outcomes, assigned RuleFallbackBaselineConfidence.
func ruleBasedExtraction(curriculumID, text string) []schemas.Competency {
	headers := competencyHeaderPattern.FindAllStringSubmatchIndex(text, -1)

	out := make([]schemas.Competency, 0, len(headers))
	for i, h := range headers {
		contentStart := h[1]
		contentEnd := len(text)
		if i+1 < len(headers) {
			contentEnd = headers[i+1][0]
		}
		number := text[h[2]:h[3]]
		content := strings.TrimSpace(text[contentStart:contentEnd])
		lines := strings.Split(content, "\n")

		title := fmt.Sprintf("Competency %s", number)
		if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
			title = strings.TrimSpace(lines[0])
		}
		if len(title) > 200 {
			title = title[:200]
		}

		var outcomes []string
		for _, line := range lines[1:] {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•") {
				outcomes = append(outcomes, strings.TrimSpace(strings.TrimLeft(line, "-•")))
			}
		}
		if len(outcomes) == 0 {
			outcomes = []string{"Complete the learning activities"}
		}
		if len(outcomes) > 10 {
			outcomes = outcomes[:10]
		}

		description := content
		if len(description) > 500 {
			description = description[:500]
		}

		out = append(out, schemas.Competency{
			CurriculumID:         curriculumID,
			Title:                title,
			Description:          description,
			LearningOutcomes:     outcomes,
			PageRangeStart:       1,
			PageRangeEnd:         1,
			SourceChunkIDs:       []string{fmt.Sprintf("rule-chunk-%d", i)},
			ExtractionConfidence: schemas.RuleFallbackBaselineConfidence,
		})
	}

	return out
}
