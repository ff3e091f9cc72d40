// Package validate implements the central validation middleware (C2):
// schema conformance, confidence floors, the binary grounding gate, and
// fallback-tier derivation.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/curricle-systems/core/pkg/schemas"
)

// SchemaRegistry compiles and caches JSON schemas keyed by name, the seam
// `validate_schema(T, data)` from spec §4.1 is built on.
type SchemaRegistry struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{compiled: make(map[string]*jsonschema.Schema)}
}

// Register compiles a Draft2020 JSON schema document under name.
func (r *SchemaRegistry) Register(name, schemaDoc string) error {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://curricle.local/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schemaDoc)); err != nil {
		return fmt.Errorf("validate: load schema %q: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("validate: compile schema %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compiled[name] = compiled
	return nil
}

// ValidateSchema is the validate_schema(T, data) seam: it marshals data to
// JSON, validates it against the named registered schema, and returns a
// schemas.SchemaValidationError with one FieldError per underlying
// validation error on failure. Schemas are law: callers must halt, never
// auto-repair, on a non-nil error.
func (r *SchemaRegistry) ValidateSchema(name string, data any) error {
	r.mu.RLock()
	compiled, ok := r.compiled[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("validate: schema %q not registered", name)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("validate: marshal %q: %w", name, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("validate: unmarshal %q: %w", name, err)
	}

	if err := compiled.Validate(decoded); err != nil {
		var fieldErrs []schemas.FieldError
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			for _, cause := range flattenCauses(ve) {
				fieldErrs = append(fieldErrs, schemas.FieldError{
					Field:   cause.InstanceLocation,
					Message: cause.Message,
				})
			}
		} else {
			fieldErrs = append(fieldErrs, schemas.FieldError{Field: "$", Message: err.Error()})
		}
		return &schemas.SchemaValidationError{Schema: name, Errors: fieldErrs}
	}
	return nil
}

func flattenCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, flattenCauses(c)...)
	}
	return out
}
