package ingestion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curricle-systems/core/pkg/schemas"
)

func TestGenerateQueries_K12(t *testing.T) {
	queries := GenerateQueries("Nigeria", "NG", "Grade 9", "Biology")
	require.LessOrEqual(t, len(queries), 5)
	require.Contains(t, queries[0], "Nigeria")
}

func TestGenerateQueries_University(t *testing.T) {
	queries := GenerateQueries("United States", "US", "Undergraduate Year 2", "Biology 201")
	require.LessOrEqual(t, len(queries), 5)
	require.Contains(t, queries[0], "syllabus")
}

func TestDetectAuthority(t *testing.T) {
	require.Equal(t, schemas.AuthorityOfficial, DetectAuthority("https://nerdc.gov.ng/curriculum/biology.pdf", "NG"))
	require.Equal(t, schemas.AuthorityUniversity, DetectAuthority("https://ocw.mit.edu/biology", "US"))
	require.Equal(t, schemas.AuthorityUnknown, DetectAuthority("https://random-blog.example.com/post", "NG"))
}

func TestRankAndDeduplicate(t *testing.T) {
	candidates := []schemas.SourceCandidate{
		{URL: "https://random-blog.example.com/a", Rank: 1},
		{URL: "https://nerdc.gov.ng/curriculum/a.pdf", Rank: 2},
		{URL: "https://nerdc.gov.ng/curriculum/a.pdf", Rank: 3},
	}
	ranked := RankAndDeduplicate(candidates, "NG")
	require.Len(t, ranked, 2)
	require.Equal(t, "https://nerdc.gov.ng/curriculum/a.pdf", ranked[0].URL)
	require.Equal(t, 1, ranked[0].Rank)
}

type fakeSearcher struct {
	results []schemas.SourceCandidate
}

func (f *fakeSearcher) Search(query, countryISO2 string) ([]schemas.SourceCandidate, error) {
	return f.results, nil
}

func TestScout_Search_NoResults(t *testing.T) {
	s := NewScout(&fakeSearcher{})
	out, err := s.Search("job-1", "Nigeria", "NG", "Grade 9", "Biology")
	require.NoError(t, err)
	require.Equal(t, schemas.AgentStatusFailed, out.Status)
}

func TestScout_Search_Success(t *testing.T) {
	s := NewScout(&fakeSearcher{results: []schemas.SourceCandidate{
		{URL: "https://nerdc.gov.ng/curriculum/biology.pdf", Rank: 1},
	}})
	out, err := s.Search("job-1", "Nigeria", "NG", "Grade 9", "Biology")
	require.NoError(t, err)
	require.Equal(t, schemas.AgentStatusSuccess, out.Status)
	require.Len(t, out.Candidates, 1)
}
