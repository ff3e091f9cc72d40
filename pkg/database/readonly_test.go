package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestReadOnlySession_ExecContextRejectsWriteStatements(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	session := NewReadOnlySession(db)
	_, err = session.ExecContext(context.Background(), "INSERT INTO curriculums (id) VALUES ('x')")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Generate-Safety Violation")
}

func TestReadOnlySession_ExecContextAllowsSelectPassthrough(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))

	session := NewReadOnlySession(db)
	rows, err := session.QueryContext(context.Background(), "SELECT id FROM curriculums")
	require.NoError(t, err)
	defer rows.Close()
}

func TestReadOnlySession_VerifyReadOnlyFailsWhenRoleCanWrite(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	session := NewReadOnlySession(db)
	err = session.VerifyReadOnly(context.Background())
	require.Error(t, err)
}

func TestReadOnlySession_VerifyReadOnlyPassesWhenRoleIsQueryOnly(t *testing.T) {
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("PRAGMA query_only = ON")
	require.NoError(t, err)

	session := NewReadOnlySession(db)
	err = session.VerifyReadOnly(context.Background())
	require.NoError(t, err)
}
