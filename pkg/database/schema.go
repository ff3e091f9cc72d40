package database

import (
	"context"
	"database/sql"
	"fmt"
)

// curriculumTableDDL and competencyTableDDL are portable across sqlite and
// postgres: no dialect-specific types beyond TEXT/REAL/INTEGER, which both
// backends accept.
const curriculumTableDDL = `
CREATE TABLE IF NOT EXISTS curriculums (
	id               TEXT PRIMARY KEY,
	country          TEXT NOT NULL,
	country_iso2     TEXT NOT NULL,
	jurisdiction_lvl TEXT NOT NULL,
	jurisdiction_nm  TEXT,
	parent_id        TEXT,
	grade            TEXT NOT NULL,
	subject          TEXT NOT NULL,
	status           TEXT NOT NULL,
	confidence       REAL NOT NULL,
	last_verified    TIMESTAMP NOT NULL,
	ttl_expiry       TIMESTAMP NOT NULL,
	source_url       TEXT,
	source_authority TEXT
)`

const competencyTableDDL = `
CREATE TABLE IF NOT EXISTS competencies (
	id                    TEXT PRIMARY KEY,
	curriculum_id         TEXT NOT NULL,
	title                 TEXT NOT NULL,
	description           TEXT,
	learning_outcomes     TEXT NOT NULL,
	page_range_start      INTEGER NOT NULL,
	page_range_end        INTEGER NOT NULL,
	source_chunk_ids      TEXT NOT NULL,
	extraction_confidence REAL NOT NULL
)`

const chunkTableDDL = `
CREATE TABLE IF NOT EXISTS embedded_chunks (
	competency_id TEXT NOT NULL,
	chunk_kind    TEXT NOT NULL,
	text          TEXT NOT NULL,
	vector        TEXT NOT NULL
)`

const ingestionJobTableDDL = `
CREATE TABLE IF NOT EXISTS ingestion_jobs (
	job_id          TEXT PRIMARY KEY,
	curriculum_id   TEXT,
	source_url      TEXT NOT NULL,
	requested_by    TEXT NOT NULL,
	decision_reason TEXT,
	status          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	decided_at      TIMESTAMP,
	decided_by      TEXT
)`

// Migrate creates every table this package owns, idempotently.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range []string{curriculumTableDDL, competencyTableDDL, chunkTableDDL, ingestionJobTableDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("database: migrate: %w", err)
		}
	}
	return nil
}
