package schemas

// JurisdictionLevel enumerates the jurisdictional granularity a curriculum
// is resolved to.
type JurisdictionLevel string

const (
	JurisdictionNational   JurisdictionLevel = "national"
	JurisdictionState      JurisdictionLevel = "state"
	JurisdictionCounty     JurisdictionLevel = "county"
	JurisdictionUniversity JurisdictionLevel = "university"
	JurisdictionDepartment JurisdictionLevel = "department"
)

// AssumptionType records how a jurisdiction was resolved.
type AssumptionType string

const (
	AssumptionAssumed      AssumptionType = "assumed"
	AssumptionUserConfirmed AssumptionType = "user_confirmed"
	AssumptionExplicit     AssumptionType = "explicit"
)

// JurisdictionResolution is the output of the ResolveJurisdiction node.
//
// Invariants:
//   - JAS > 0.7 with AssumptionType == assumed is rejected.
//   - Confidence < 0.6 is rejected (must ask user).
type JurisdictionResolution struct {
	RequestID      string            `json:"request_id"`
	Level          JurisdictionLevel `json:"level"`
	Name           string            `json:"name,omitempty"`
	ParentID       string            `json:"parent_id,omitempty"`
	JAS            float64           `json:"jas"`
	AssumptionType AssumptionType    `json:"assumption_type"`
	Confidence     float64           `json:"confidence"`
}

const (
	// MaxAssumedJAS is the JAS ceiling above which a silent assumption is
	// forbidden — the caller must be asked to confirm.
	MaxAssumedJAS = 0.7
	// MinJurisdictionConfidence is the floor below which resolution is
	// rejected outright.
	MinJurisdictionConfidence = 0.6
)

// NewJurisdictionResolution validates both invariants.
func NewJurisdictionResolution(r JurisdictionResolution) (JurisdictionResolution, error) {
	var errs []FieldError
	if r.JAS > MaxAssumedJAS && r.AssumptionType == AssumptionAssumed {
		errs = append(errs, FieldError{
			Field:   "jas",
			Message: "jas > 0.7 forbids a silent (assumed) jurisdiction resolution",
		})
	}
	if r.Confidence < MinJurisdictionConfidence {
		errs = append(errs, FieldError{
			Field:   "confidence",
			Message: "must be >= 0.6",
		})
	}
	if len(errs) > 0 {
		return JurisdictionResolution{}, &SchemaValidationError{Schema: "JurisdictionResolution", Errors: errs}
	}
	return r, nil
}
