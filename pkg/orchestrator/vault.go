package orchestrator

import (
	"context"

	"github.com/curricle-systems/core/pkg/schemas"
)

// Vault is the curriculum store the graph consults in VaultLookup and
// populates in VaultStore. Concrete implementations (sqlite/postgres) live
// in pkg/database; this package only depends on the interface.
type Vault interface {
	Lookup(ctx context.Context, country, grade, subject string) (schemas.VaultLookupResult, []schemas.Competency, error)
	Store(ctx context.Context, curriculum schemas.Curriculum, competencies []schemas.Competency, chunks []schemas.EmbeddedChunk) error
	Competencies(ctx context.Context, curriculumID string) ([]schemas.Competency, error)
}
