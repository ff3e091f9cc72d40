package ingestion

import "github.com/curricle-systems/core/pkg/validate"

// RegisterSchemas registers every JSON schema the ingestion pipeline's
// structured-output calls validate against.
func RegisterSchemas(registry *validate.SchemaRegistry) error {
	return registry.Register(extractionSchemaName, extractionSchemaDoc)
}
