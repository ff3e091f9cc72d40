package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/curricle-systems/core/pkg/schemas"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestSQLVault_StoreThenLookupExactMatch(t *testing.T) {
	db := openTestDB(t)
	vault := NewSQLVault(db, DialectSQLite)
	ctx := context.Background()

	curriculum := schemas.Curriculum{
		ID:              "cur-1",
		Country:         "Nigeria",
		CountryISO2:     "NG",
		JurisdictionLvl: schemas.JurisdictionState,
		Grade:           "Grade 9",
		Subject:         "Biology",
		Status:          schemas.CurriculumStatusActive,
		Confidence:      0.9,
		LastVerified:    time.Now().UTC(),
		TTLExpiry:       time.Now().Add(24 * time.Hour).UTC(),
		SourceURL:       "https://moe.gov.ng/biology",
		SourceAuthority: "moe.gov.ng",
	}
	competencies := []schemas.Competency{
		{
			ID: "c1", CurriculumID: "cur-1", Title: "Photosynthesis", Description: "Light reactions",
			LearningOutcomes: []string{"Explain light reactions"}, PageRangeStart: 1, PageRangeEnd: 2,
			SourceChunkIDs: []string{"chunk-1"}, ExtractionConfidence: 0.9,
		},
	}
	chunks := []schemas.EmbeddedChunk{
		{CompetencyID: "c1", ChunkKind: "main", Text: "Photosynthesis. Light reactions", Vector: []float32{0.1, 0.2}},
	}

	require.NoError(t, vault.Store(ctx, curriculum, competencies, chunks))

	result, comps, err := vault.Lookup(ctx, "Nigeria", "Grade 9", "Biology")
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, "cur-1", result.CurriculumID)
	require.Equal(t, schemas.VaultSourceCache, result.Source)
	require.InDelta(t, 0.9, result.Confidence, 0.0001)
	require.Len(t, comps, 1)
	require.Equal(t, "Photosynthesis", comps[0].Title)
	require.Equal(t, []string{"Explain light reactions"}, comps[0].LearningOutcomes)
}

func TestSQLVault_FallsBackToNationalCurriculum(t *testing.T) {
	db := openTestDB(t)
	vault := NewSQLVault(db, DialectSQLite)
	ctx := context.Background()

	national := schemas.Curriculum{
		ID:              "cur-national",
		Country:         "Nigeria",
		CountryISO2:     "NG",
		JurisdictionLvl: schemas.JurisdictionNational,
		Grade:           "Grade 9",
		Subject:         "Biology",
		Status:          schemas.CurriculumStatusActive,
		Confidence:      0.85,
		LastVerified:    time.Now().UTC(),
		TTLExpiry:       time.Now().Add(24 * time.Hour).UTC(),
	}
	require.NoError(t, vault.Store(ctx, national, nil, nil))

	result, _, err := vault.Lookup(ctx, "Nigeria", "Grade 11", "Biology")
	require.NoError(t, err)
	require.True(t, result.Found)
	require.Equal(t, schemas.VaultSourceNational, result.Source)
}

func TestSQLVault_MissReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	vault := NewSQLVault(db, DialectSQLite)

	result, comps, err := vault.Lookup(context.Background(), "Freedonia", "Grade 1", "Mathematics")
	require.NoError(t, err)
	require.False(t, result.Found)
	require.True(t, result.NeedsColdStart())
	require.Empty(t, comps)
}

func TestSQLVault_CompetenciesReturnsEmptyForUnknownCurriculum(t *testing.T) {
	db := openTestDB(t)
	vault := NewSQLVault(db, DialectSQLite)

	comps, err := vault.Competencies(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Empty(t, comps)
}
