package schemas

import "time"

// SourceCitation is one entry in a ProvenanceBlock's source list.
type SourceCitation struct {
	URL            string `json:"url"`
	Authority      string `json:"authority"`
	FetchDate      string `json:"fetch_date"`
	PageRangeStart int    `json:"page_range_start,omitempty"`
	PageRangeEnd   int    `json:"page_range_end,omitempty"`
}

// ProvenanceBlock is the governed citation record attached to every
// artifact's metadata, grounded on src/production/governance.py.
type ProvenanceBlock struct {
	CurriculumID         string           `json:"curriculum_id"`
	SourceList           []SourceCitation `json:"source_list"`
	RetrievalTimestamp   time.Time        `json:"retrieval_timestamp"`
	ReplicaVersion       string           `json:"replica_version"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
}

// DefaultReplicaVersion mirrors the Python original's hardcoded "v1.0".
const DefaultReplicaVersion = "v1.0"

// Validate enforces that a ProvenanceBlock is well-formed: a curriculum id,
// a non-empty source list, and every citation carrying a URL and an
// authority.
func (p ProvenanceBlock) Validate() error {
	var errs []FieldError
	if p.CurriculumID == "" {
		errs = append(errs, FieldError{Field: "curriculum_id", Message: "required"})
	}
	if len(p.SourceList) == 0 {
		errs = append(errs, FieldError{Field: "source_list", Message: "must have >= 1 entry"})
	}
	for i, s := range p.SourceList {
		if s.URL == "" {
			errs = append(errs, FieldError{Field: "source_list[].url", Message: "required"})
		}
		if s.Authority == "" {
			errs = append(errs, FieldError{Field: "source_list[].authority", Message: "required"})
		}
		_ = i
	}
	if len(errs) > 0 {
		return &SchemaValidationError{Schema: "ProvenanceBlock", Errors: errs}
	}
	return nil
}
