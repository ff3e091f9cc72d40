package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/curricle-systems/core/pkg/schemas"
)

// SQLVault implements pkg/orchestrator.Vault over a plain database/sql
// handle. It serves both the sqlite (local/dev) and postgres (production)
// backends the teacher's go.mod already depends on, selecting placeholder
// syntax via Dialect.
type SQLVault struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLVault wraps an already-open connection. Callers own the connection
// lifecycle; NewSQLVault does not call Migrate.
func NewSQLVault(db *sql.DB, dialect Dialect) *SQLVault {
	return &SQLVault{db: db, dialect: dialect}
}

// Lookup resolves a curriculum by exact (country, grade, subject) match
// first (VaultSourceCache); failing that, it falls back to a national-level
// curriculum for the same country and subject (VaultSourceNational). A miss
// on both returns Found=false so the caller routes to cold-start ingestion.
func (v *SQLVault) Lookup(ctx context.Context, country, grade, subject string) (schemas.VaultLookupResult, []schemas.Competency, error) {
	row, source, err := v.lookupExact(ctx, country, grade, subject)
	if err != nil {
		return schemas.VaultLookupResult{}, nil, err
	}
	if row == nil {
		row, source, err = v.lookupNational(ctx, country, subject)
		if err != nil {
			return schemas.VaultLookupResult{}, nil, err
		}
	}
	if row == nil {
		return schemas.VaultLookupResult{Found: false}, nil, nil
	}

	competencies, err := v.Competencies(ctx, row.ID)
	if err != nil {
		return schemas.VaultLookupResult{}, nil, err
	}

	return schemas.VaultLookupResult{
		Found:        true,
		CurriculumID: row.ID,
		Confidence:   row.Confidence,
		Source:       source,
	}, competencies, nil
}

func (v *SQLVault) lookupExact(ctx context.Context, country, grade, subject string) (*schemas.Curriculum, schemas.VaultSourceTag, error) {
	query := fmt.Sprintf(`SELECT %s FROM curriculums WHERE country = %s AND grade = %s AND subject = %s AND status = %s ORDER BY last_verified DESC LIMIT 1`,
		curriculumColumns, v.dialect.Placeholder(1), v.dialect.Placeholder(2), v.dialect.Placeholder(3), v.dialect.Placeholder(4))
	row := v.db.QueryRowContext(ctx, query, country, grade, subject, string(schemas.CurriculumStatusActive))
	curriculum, err := scanCurriculum(row)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("database: lookup exact: %w", err)
	}
	return curriculum, schemas.VaultSourceCache, nil
}

func (v *SQLVault) lookupNational(ctx context.Context, country, subject string) (*schemas.Curriculum, schemas.VaultSourceTag, error) {
	query := fmt.Sprintf(`SELECT %s FROM curriculums WHERE country = %s AND subject = %s AND jurisdiction_lvl = %s AND status = %s ORDER BY last_verified DESC LIMIT 1`,
		curriculumColumns, v.dialect.Placeholder(1), v.dialect.Placeholder(2), v.dialect.Placeholder(3), v.dialect.Placeholder(4))
	row := v.db.QueryRowContext(ctx, query, country, subject, string(schemas.JurisdictionNational), string(schemas.CurriculumStatusActive))
	curriculum, err := scanCurriculum(row)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("database: lookup national: %w", err)
	}
	return curriculum, schemas.VaultSourceNational, nil
}

const curriculumColumns = `id, country, country_iso2, jurisdiction_lvl, jurisdiction_nm, parent_id, grade, subject, status, confidence, last_verified, ttl_expiry, source_url, source_authority`

func scanCurriculum(row *sql.Row) (*schemas.Curriculum, error) {
	var c schemas.Curriculum
	var jurisdictionLvl, status string
	var jurisdictionNm, parentID, sourceURL, sourceAuthority sql.NullString
	err := row.Scan(&c.ID, &c.Country, &c.CountryISO2, &jurisdictionLvl, &jurisdictionNm, &parentID,
		&c.Grade, &c.Subject, &status, &c.Confidence, &c.LastVerified, &c.TTLExpiry, &sourceURL, &sourceAuthority)
	if err != nil {
		return nil, err
	}
	c.JurisdictionLvl = schemas.JurisdictionLevel(jurisdictionLvl)
	c.JurisdictionNm = jurisdictionNm.String
	c.ParentID = parentID.String
	c.Status = schemas.CurriculumStatus(status)
	c.SourceURL = sourceURL.String
	c.SourceAuthority = sourceAuthority.String
	return &c, nil
}

// Store persists a freshly ingested curriculum, its competencies, and their
// embedded chunks in a single transaction.
func (v *SQLVault) Store(ctx context.Context, curriculum schemas.Curriculum, competencies []schemas.Competency, chunks []schemas.EmbeddedChunk) error {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := curriculum.LastVerified
	if now.IsZero() {
		now = time.Now().UTC()
	}

	insertCurriculum := fmt.Sprintf(`INSERT INTO curriculums (%s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		curriculumColumns,
		v.dialect.Placeholder(1), v.dialect.Placeholder(2), v.dialect.Placeholder(3), v.dialect.Placeholder(4),
		v.dialect.Placeholder(5), v.dialect.Placeholder(6), v.dialect.Placeholder(7), v.dialect.Placeholder(8),
		v.dialect.Placeholder(9), v.dialect.Placeholder(10), v.dialect.Placeholder(11), v.dialect.Placeholder(12),
		v.dialect.Placeholder(13), v.dialect.Placeholder(14))
	if _, err := tx.ExecContext(ctx, insertCurriculum,
		curriculum.ID, curriculum.Country, curriculum.CountryISO2, string(curriculum.JurisdictionLvl),
		nullableString(curriculum.JurisdictionNm), nullableString(curriculum.ParentID), curriculum.Grade, curriculum.Subject,
		string(curriculum.Status), curriculum.Confidence, now, curriculum.TTLExpiry,
		nullableString(curriculum.SourceURL), nullableString(curriculum.SourceAuthority),
	); err != nil {
		return fmt.Errorf("database: store curriculum: %w", err)
	}

	for _, comp := range competencies {
		if err := v.insertCompetency(ctx, tx, comp); err != nil {
			return err
		}
	}

	for _, chunk := range chunks {
		if err := v.insertChunk(ctx, tx, chunk); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: store: commit: %w", err)
	}
	return nil
}

func (v *SQLVault) insertCompetency(ctx context.Context, tx *sql.Tx, comp schemas.Competency) error {
	outcomes, err := json.Marshal(comp.LearningOutcomes)
	if err != nil {
		return fmt.Errorf("database: marshal learning_outcomes: %w", err)
	}
	chunkIDs, err := json.Marshal(comp.SourceChunkIDs)
	if err != nil {
		return fmt.Errorf("database: marshal source_chunk_ids: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO competencies (id, curriculum_id, title, description, learning_outcomes, page_range_start, page_range_end, source_chunk_ids, extraction_confidence) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		v.dialect.Placeholder(1), v.dialect.Placeholder(2), v.dialect.Placeholder(3), v.dialect.Placeholder(4),
		v.dialect.Placeholder(5), v.dialect.Placeholder(6), v.dialect.Placeholder(7), v.dialect.Placeholder(8), v.dialect.Placeholder(9))
	_, err = tx.ExecContext(ctx, query, comp.ID, comp.CurriculumID, comp.Title, comp.Description,
		string(outcomes), comp.PageRangeStart, comp.PageRangeEnd, string(chunkIDs), comp.ExtractionConfidence)
	if err != nil {
		return fmt.Errorf("database: store competency: %w", err)
	}
	return nil
}

func (v *SQLVault) insertChunk(ctx context.Context, tx *sql.Tx, chunk schemas.EmbeddedChunk) error {
	vector, err := json.Marshal(chunk.Vector)
	if err != nil {
		return fmt.Errorf("database: marshal vector: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO embedded_chunks (competency_id, chunk_kind, text, vector) VALUES (%s, %s, %s, %s)`,
		v.dialect.Placeholder(1), v.dialect.Placeholder(2), v.dialect.Placeholder(3), v.dialect.Placeholder(4))
	if _, err := tx.ExecContext(ctx, query, chunk.CompetencyID, chunk.ChunkKind, chunk.Text, string(vector)); err != nil {
		return fmt.Errorf("database: store chunk: %w", err)
	}
	return nil
}

// Competencies fetches every competency stored for curriculumID.
func (v *SQLVault) Competencies(ctx context.Context, curriculumID string) ([]schemas.Competency, error) {
	query := fmt.Sprintf(`SELECT id, curriculum_id, title, description, learning_outcomes, page_range_start, page_range_end, source_chunk_ids, extraction_confidence FROM competencies WHERE curriculum_id = %s ORDER BY id`,
		v.dialect.Placeholder(1))
	rows, err := v.db.QueryContext(ctx, query, curriculumID)
	if err != nil {
		return nil, fmt.Errorf("database: competencies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schemas.Competency
	for rows.Next() {
		var c schemas.Competency
		var outcomesJSON, chunkIDsJSON string
		if err := rows.Scan(&c.ID, &c.CurriculumID, &c.Title, &c.Description, &outcomesJSON,
			&c.PageRangeStart, &c.PageRangeEnd, &chunkIDsJSON, &c.ExtractionConfidence); err != nil {
			return nil, fmt.Errorf("database: competencies scan: %w", err)
		}
		if err := json.Unmarshal([]byte(outcomesJSON), &c.LearningOutcomes); err != nil {
			return nil, fmt.Errorf("database: unmarshal learning_outcomes: %w", err)
		}
		if err := json.Unmarshal([]byte(chunkIDsJSON), &c.SourceChunkIDs); err != nil {
			return nil, fmt.Errorf("database: unmarshal source_chunk_ids: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
