package httpapi

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// dslRequestSchemaRegistry holds the compiled schema that validates the wire envelope of POST /execute-dsl before it ever reaches
// dsl.DecodePlan: structural shape (which fields exist, their JSON types) is checked with a
// compiled schema, while the DSL package itself only ever enforces the cross-field invariants
// a JSON Schema can't express (see internal/dsl's ledger entry).
type dslRequestSchemaRegistry struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var dslRequestSchemas dslRequestSchemaRegistry

func compileExecuteDSLSchema() (*jsonschema.Schema, error) {
	dslRequestSchemas.once.Do(func() {
		dslRequestSchemas.schema, dslRequestSchemas.err = jsonschema.CompileString("execute_dsl_request", executeDSLRequestSchema)
	})
	return dslRequestSchemas.schema, dslRequestSchemas.err
}

// validateExecuteDSLBody checks the raw request body against executeDSLRequestSchema. It
// accepts the {plan:{...}} envelope, a bare {actions, expected_catalog_version} body, or a bare
// JSON array of actions, the same three shapes handleExecuteDSL already decodes.
func validateExecuteDSLBody(body []byte) error {
	schema, err := compileExecuteDSLSchema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

const executeDSLRequestSchema = `{
  "oneOf": [
    {
      "type": "object",
      "required": ["plan"],
      "properties": {
        "plan": {
          "type": "object",
          "required": ["actions"],
          "properties": {
            "actions": { "type": "array" },
            "expected_catalog_version": { "type": "string" }
          }
        }
      }
    },
    {
      "type": "object",
      "required": ["actions"],
      "properties": {
        "actions": { "type": "array" },
        "expected_catalog_version": { "type": "string" }
      }
    },
    {
      "type": "array"
    }
  ]
}`
