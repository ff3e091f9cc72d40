package schemas

// VaultSourceTag identifies where a vault hit was served from.
type VaultSourceTag string

const (
	VaultSourceCache    VaultSourceTag = "cache"
	VaultSourceParent   VaultSourceTag = "parent"
	VaultSourceNational VaultSourceTag = "national"
)

// VaultLookupResult is the output of the VaultLookup node.
//
// Policy: Found && Confidence >= 0.8 serves immediately; Found &&
// Confidence < 0.8 serves with a refresh warning; !Found triggers cold
// start.
type VaultLookupResult struct {
	RequestID    string         `json:"request_id"`
	Found        bool           `json:"found"`
	CurriculumID string         `json:"curriculum_id,omitempty"`
	Confidence   float64        `json:"confidence,omitempty"`
	Source       VaultSourceTag `json:"source,omitempty"`
}

// MinVaultConfidenceForImmediateServe is the threshold above which a hit is
// served without a refresh warning.
const MinVaultConfidenceForImmediateServe = 0.8

// NeedsColdStart reports whether this lookup must fall through to the
// ingestion sub-path.
func (v VaultLookupResult) NeedsColdStart() bool {
	return !v.Found
}

// NeedsRefreshWarning reports a stale-but-usable hit.
func (v VaultLookupResult) NeedsRefreshWarning() bool {
	return v.Found && v.Confidence < MinVaultConfidenceForImmediateServe
}
