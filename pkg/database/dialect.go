package database

import "fmt"

// Dialect abstracts the placeholder syntax and driver name differences
// between the sqlite (local/dev) and postgres (production) backends this
// package supports, grounded on the teacher's own split between
// pkg/database/multiregion.go's "postgres" driver and the go.mod's
// modernc.org/sqlite dependency.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DriverName returns the database/sql driver name registered for d.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Placeholder returns the positional bind-parameter syntax for the nth
// (1-indexed) argument in a query.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
