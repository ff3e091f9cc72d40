// Package ingestion implements the source-discovery pipeline (C4): Scout
// ranks candidate curriculum URLs, Gatekeeper validates license/authority
// and detects conflicts, Architect extracts competencies from the approved
// PDF, and Embedder chunks and embeds them.
package ingestion

import (
	"regexp"
	"sort"
	"strings"

	"github.com/curricle-systems/core/pkg/schemas"
)

// officialDomains mirrors the country -> official education domain table;
// grounded on src/agents/scout.py's OFFICIAL_DOMAINS.
var officialDomains = map[string][]string{
	"NG": {"nerdc.gov.ng", "education.gov.ng", "waec.org.ng"},
	"KE": {"kicd.ac.ke", "education.go.ke", "knec.ac.ke"},
	"GH": {"nacca.gov.gh", "moe.gov.gh"},
	"ZA": {"education.gov.za", "dbe.gov.za"},
	"US": {".gov", "corestandards.org"},
	"GB": {"gov.uk", "education.gov.uk"},
	"CA": {".edu.on.ca", ".edu.bc.ca", ".edu.ab.ca"},
}

// universityDomains mirrors UNIVERSITY_DOMAINS: global higher-education and
// open-courseware domains, treated as official for ranking purposes.
var universityDomains = []string{
	".edu", ".ac.uk", ".ac.za", ".edu.ng", ".edu.au",
	"ocw.mit.edu", "coursera.org", "edx.org", "khanacademy.org",
	"harvard.edu", "stanford.edu", "ox.ac.uk", "cam.ac.uk",
}

var urlDomainRE = regexp.MustCompile(`https?://([^/]+)`)

// universityGradeKeywords flags a grade string as higher-education, driving
// Scout's query template choice.
var universityGradeKeywords = []string{
	"university", "college", "bachelor", "master", "phd",
	"undergraduate", "graduate", "bsc", "msc", "ba", "ma",
	"year 1", "year 2", "year 3", "year 4",
	"freshman", "sophomore", "junior", "senior",
	"101", "201", "301", "401",
}

// Searcher executes one search query and returns raw candidate results; in
// production this wraps a search API, in tests a fixture.
type Searcher interface {
	Search(query, countryISO2 string) ([]schemas.SourceCandidate, error)
}

// Scout ranks and filters candidate curriculum source URLs.
type Scout struct {
	searcher Searcher
}

// NewScout builds a Scout backed by the given Searcher.
func NewScout(searcher Searcher) *Scout {
	return &Scout{searcher: searcher}
}

// GenerateQueries builds up to 5 search queries, choosing the
// university-syllabus template when grade names a higher-education level.
func GenerateQueries(country, countryISO2, grade, subject string) []string {
	gradeLower := strings.ToLower(grade)
	isUniversity := false
	for _, kw := range universityGradeKeywords {
		if strings.Contains(gradeLower, kw) {
			isUniversity = true
			break
		}
	}

	var queries []string
	if isUniversity {
		queries = []string{
			subject + " " + grade + " syllabus PDF",
			subject + " course outline " + grade + " university",
			subject + " curriculum " + grade + " learning outcomes",
			grade + " " + subject + " course description syllabus",
			"MIT OpenCourseWare " + subject + " OR Coursera " + subject + " syllabus",
		}
	} else {
		queries = []string{
			country + " " + grade + " " + subject + " curriculum official PDF",
			country + " " + grade + " " + subject + " syllabus ministry of education",
			"official " + subject + " curriculum " + grade + " " + country + " filetype:pdf",
			country + " national curriculum " + subject + " " + grade,
			subject + " learning outcomes " + grade + " " + country + " education",
		}
	}

	if len(queries) > 5 {
		queries = queries[:5]
	}
	return queries
}

// Search runs Scout's full pipeline: generate queries, execute each, then
// rank and deduplicate the combined result set.
func (s *Scout) Search(jobID, country, countryISO2, grade, subject string) (schemas.ScoutOutput, error) {
	queries := GenerateQueries(country, countryISO2, grade, subject)

	var all []schemas.SourceCandidate
	for _, q := range queries {
		results, err := s.searcher.Search(q, countryISO2)
		if err != nil {
			continue
		}
		all = append(all, results...)
	}

	ranked := RankAndDeduplicate(all, countryISO2)
	if len(ranked) == 0 {
		return schemas.ScoutOutput{JobID: jobID, Candidates: nil, Status: schemas.AgentStatusFailed}, nil
	}

	if len(ranked) > 10 {
		ranked = ranked[:10]
	}
	return schemas.ScoutOutput{JobID: jobID, Candidates: ranked, Status: schemas.AgentStatusSuccess}, nil
}

// DetectAuthority classifies a URL as official, university, or unknown by
// matching it against the country's official-domain table, the global
// university-domain list, and generic .gov/.edu patterns.
func DetectAuthority(url, countryISO2 string) schemas.AuthorityHint {
	domain := ExtractDomain(url)

	for _, official := range officialDomains[countryISO2] {
		if strings.Contains(domain, official) {
			return schemas.AuthorityOfficial
		}
	}
	for _, uni := range universityDomains {
		if strings.Contains(domain, uni) {
			return schemas.AuthorityUniversity
		}
	}
	if strings.Contains(domain, ".gov.") || strings.Contains(url, "/gov/") {
		return schemas.AuthorityOfficial
	}
	if strings.Contains(domain, ".edu") || strings.Contains(domain, ".ac.") {
		return schemas.AuthorityUniversity
	}
	return schemas.AuthorityUnknown
}

// ExtractDomain pulls the host portion out of an http(s) URL.
func ExtractDomain(url string) string {
	m := urlDomainRE.FindStringSubmatch(url)
	if len(m) == 2 {
		return m[1]
	}
	return url
}

// RankAndDeduplicate removes duplicate URLs, re-detects authority for each
// survivor, and sorts official/university sources ahead of unknown ones,
// stable within each bucket on the incoming rank.
func RankAndDeduplicate(candidates []schemas.SourceCandidate, countryISO2 string) []schemas.SourceCandidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]schemas.SourceCandidate, 0, len(candidates))

	for _, c := range candidates {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		c.Domain = ExtractDomain(c.URL)
		c.Authority = DetectAuthority(c.URL, countryISO2)
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		pi := authorityPriority(unique[i].Authority)
		pj := authorityPriority(unique[j].Authority)
		if pi != pj {
			return pi < pj
		}
		return unique[i].Rank < unique[j].Rank
	})

	for i := range unique {
		unique[i].Rank = i + 1
	}
	return unique
}

func authorityPriority(a schemas.AuthorityHint) int {
	switch a {
	case schemas.AuthorityOfficial, schemas.AuthorityUniversity:
		return 0
	default:
		return 1
	}
}
