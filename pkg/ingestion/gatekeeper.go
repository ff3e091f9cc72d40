package ingestion

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/curricle-systems/core/pkg/schemas"
)

// licensePatterns mirrors LICENSE_PATTERNS: substrings checked against a
// candidate URL/document text to classify its usage terms.
var licensePatterns = map[schemas.LicenseType][]string{
	schemas.LicensePublicDomain:    {"public domain", "no copyright", "cc0"},
	schemas.LicenseCreativeCommons: {"creative commons", "cc by", "cc-by", "attribution"},
	schemas.LicenseGovernment:      {"government publication", "crown copyright", "official document", "ministry of education", "published by the government"},
	schemas.LicenseEducational:     {"for educational use", "educational purposes", "non-commercial", "educational license"},
}

// authorityNames maps known domains to a human-readable authority name;
// unknown domains fall back to "Education Authority, <country>".
var authorityNames = map[string]string{
	"nerdc.gov.ng":      "Nigerian Educational Research and Development Council",
	"education.gov.ng":  "Federal Ministry of Education, Nigeria",
	"kicd.ac.ke":        "Kenya Institute of Curriculum Development",
	"nacca.gov.gh":      "National Council for Curriculum and Assessment, Ghana",
	"education.gov.za":  "Department of Basic Education, South Africa",
}

var publicationYearRE = regexp.MustCompile(`(20[12][0-9])`)

// ConflictYearSpan is the number of years a set of approved sources may
// span before Gatekeeper flags a conflict (outdated/competing versions).
const ConflictYearSpan = 2

// Gatekeeper validates Scout's candidates for authority, license, and
// recency, and detects conflicting source versions.
type Gatekeeper struct{}

// NewGatekeeper builds a Gatekeeper.
func NewGatekeeper() *Gatekeeper {
	return &Gatekeeper{}
}

// Validate runs Gatekeeper's full pipeline over Scout's candidates.
func (g *Gatekeeper) Validate(jobID, country string, candidates []schemas.SourceCandidate) schemas.GatekeeperOutput {
	if len(candidates) == 0 {
		return schemas.GatekeeperOutput{JobID: jobID, Approved: nil, Status: schemas.AgentStatusFailed}
	}

	var approved []schemas.ApprovedSource
	var publishedYears []int

	for _, c := range candidates {
		src, year, ok := g.validateSource(c, country)
		if !ok {
			continue
		}
		approved = append(approved, src)
		if year > 0 {
			publishedYears = append(publishedYears, year)
		}
	}

	status := schemas.AgentStatusSuccess
	switch {
	case len(approved) > 1 && hasConflict(publishedYears):
		status = schemas.AgentStatusConflicted
	case len(approved) == 0:
		status = schemas.AgentStatusFailed
	}

	return schemas.GatekeeperOutput{JobID: jobID, Approved: approved, Status: status}
}

func (g *Gatekeeper) validateSource(c schemas.SourceCandidate, country string) (schemas.ApprovedSource, int, bool) {
	authorityName := authorityName(c.Domain, country)
	year := extractPublicationYear(c.URL)

	if c.Authority == schemas.AuthorityOfficial {
		return schemas.ApprovedSource{
			URL:             c.URL,
			Authority:       authorityName,
			License:         schemas.LicenseGovernment,
			PublicationYear: year,
			Confidence:      0.95,
		}, year, true
	}

	license := detectLicense(c.URL)
	if license == schemas.LicenseUnknown || license == schemas.LicenseRestricted {
		return schemas.ApprovedSource{}, 0, false
	}

	return schemas.ApprovedSource{
		URL:             c.URL,
		Authority:       authorityName,
		License:         license,
		PublicationYear: year,
		Confidence:      0.7,
	}, year, true
}

func authorityName(domain, country string) string {
	if name, ok := authorityNames[domain]; ok {
		return name
	}
	return "Education Authority, " + country
}

func detectLicense(url string) schemas.LicenseType {
	lower := strings.ToLower(url)

	if strings.Contains(lower, ".gov.") || strings.Contains(lower, "ministry") {
		return schemas.LicenseGovernment
	}
	for licenseType, patterns := range licensePatterns {
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return licenseType
			}
		}
	}
	if strings.Contains(lower, ".edu") || strings.Contains(lower, ".ac.") {
		return schemas.LicenseEducational
	}
	return schemas.LicenseUnknown
}

func extractPublicationYear(url string) int {
	m := publicationYearRE.FindStringSubmatch(url)
	if len(m) != 2 {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

func hasConflict(years []int) bool {
	if len(years) < 2 {
		return false
	}
	unique := make(map[int]bool, len(years))
	for _, y := range years {
		unique[y] = true
	}
	if len(unique) < 2 {
		return false
	}
	min, max := years[0], years[0]
	for _, y := range years {
		if y < min {
			min = y
		}
		if y > max {
			max = y
		}
	}
	return (max - min) > ConflictYearSpan
}
