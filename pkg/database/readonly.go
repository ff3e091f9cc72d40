package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/curricle-systems/core/pkg/schemas"
)

// writeStatementRE matches any SQL statement that mutates state, grounded
// on src/production/security.py's ReadOnlySession pre-flush hook.
var writeStatementRE = regexp.MustCompile(`(?i)^\s*(INSERT|UPDATE|DELETE|CREATE|DROP|ALTER|TRUNCATE|REPLACE|GRANT|REVOKE)\b`)

// ReadOnlySession enforces the read-only invariant at two independent
// layers: ExecContext rejects write statements before they reach the
// driver (the application-level guard), and VerifyReadOnly performs a
// DB-level self-test (the role-level guard). It implements
// pkg/harness.ReadOnlyChecker.
type ReadOnlySession struct {
	db *sql.DB
}

// NewReadOnlySession wraps db. Callers own the connection's lifecycle.
func NewReadOnlySession(db *sql.DB) *ReadOnlySession {
	return &ReadOnlySession{db: db}
}

// QueryContext passes reads through to the underlying connection.
func (s *ReadOnlySession) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// QueryRowContext passes a single-row read through to the underlying
// connection.
func (s *ReadOnlySession) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// ExecContext rejects any write statement at the application level,
// independent of whatever the DB role itself would allow.
func (s *ReadOnlySession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if writeStatementRE.MatchString(query) {
		return nil, &schemas.DatabaseNotReadOnlyError{Detail: "write statement rejected at application level"}
	}
	return s.db.ExecContext(ctx, query, args...)
}

const selfTestTableName = "__readonly_self_test_probe"

// VerifyReadOnly performs the DB-level self-test described in spec §4.8:
// it attempts a plain (not temporary) CREATE TABLE directly (bypassing
// ExecContext's application-level guard, since this test exists
// specifically to check the layer underneath that guard) and requires the
// attempt to fail. Any error from the CREATE counts as a pass; the error is
// not checked for being a permission error. A successful CREATE, or any
// failure to even open the probe transaction, is itself a self-test
// failure — the DB role must refuse writes independently of the
// application layer.
func (s *ReadOnlySession) VerifyReadOnly(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &schemas.DatabaseNotReadOnlyError{Detail: fmt.Sprintf("self-test transaction failed to open: %v", err)}
	}
	defer func() { _ = tx.Rollback() }()

	_, execErr := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (probe INTEGER)", selfTestTableName))
	if execErr == nil {
		_, _ = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", selfTestTableName))
		return &schemas.DatabaseNotReadOnlyError{Detail: "DB role self-test: CREATE TABLE unexpectedly succeeded"}
	}
	return nil
}
