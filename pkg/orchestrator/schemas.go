package orchestrator

import "github.com/curricle-systems/core/pkg/validate"

// normalizationResponse is the schema the intent-classification structured
// call validates against before becoming a schemas.NormalizedRequest.
type normalizationResponse struct {
	Country     string  `json:"country"`
	CountryISO2 string  `json:"country_iso2"`
	Grade       string  `json:"grade"`
	Subject     string  `json:"subject"`
	Language    string  `json:"language"`
	Institution string  `json:"institution"`
	Department  string  `json:"department"`
	Mode        string  `json:"mode"`
	Confidence  float64 `json:"confidence"`
}

const normalizationSchemaName = "NormalizationResponse"

const normalizationSchemaDoc = `{
  "type": "object",
  "required": ["country", "country_iso2", "grade", "subject", "language", "mode", "confidence"],
  "properties": {
    "country": {"type": "string"},
    "country_iso2": {"type": "string"},
    "grade": {"type": "string"},
    "subject": {"type": "string"},
    "language": {"type": "string"},
    "institution": {"type": "string"},
    "department": {"type": "string"},
    "mode": {"type": "string", "enum": ["K12", "SYLLABUS"]},
    "confidence": {"type": "number"}
  }
}`

// jurisdictionResponse is the schema the jurisdiction-resolution structured
// call validates against before becoming a schemas.JurisdictionResolution.
type jurisdictionResponse struct {
	Level          string  `json:"level"`
	Name           string  `json:"name"`
	ParentID       string  `json:"parent_id"`
	JAS            float64 `json:"jas"`
	AssumptionType string  `json:"assumption_type"`
	Confidence     float64 `json:"confidence"`
}

const jurisdictionSchemaName = "JurisdictionResponse"

const jurisdictionSchemaDoc = `{
  "type": "object",
  "required": ["level", "jas", "assumption_type", "confidence"],
  "properties": {
    "level": {"type": "string", "enum": ["national", "state", "county", "university", "department"]},
    "name": {"type": "string"},
    "parent_id": {"type": "string"},
    "jas": {"type": "number"},
    "assumption_type": {"type": "string", "enum": ["assumed", "user_confirmed", "explicit"]},
    "confidence": {"type": "number"}
  }
}`

// RegisterSchemas registers every JSON schema the orchestration graph's own
// structured-output calls validate against (as distinct from pkg/ingestion's
// agent schemas, registered separately).
func RegisterSchemas(registry *validate.SchemaRegistry) error {
	if err := registry.Register(normalizationSchemaName, normalizationSchemaDoc); err != nil {
		return err
	}
	return registry.Register(jurisdictionSchemaName, jurisdictionSchemaDoc)
}
