package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// incidentDataSchemaText is the closed schema for log_incident's
// incident_data argument (§4.B, §6). A directive whose object literal does
// not validate is reported as ErrInvalidIncidentData rather than silently
// forwarded to the audit log.
const incidentDataSchemaText = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["category", "risk_level", "summary"],
	"additionalProperties": false,
	"properties": {
		"category": {"type": "string", "minLength": 1},
		"risk_level": {"type": "string", "enum": ["CRITICAL", "HIGH", "MEDIUM", "LOW"]},
		"summary": {"type": "string", "minLength": 1, "maxLength": 2000},
		"resources_offered": {"type": "array", "items": {"type": "string"}},
		"tool_calls_made": {"type": "array", "items": {"type": "string"}},
		"flagged_for_review": {"type": "boolean"}
	}
}`

var incidentDataSchema = compileIncidentDataSchema()

func compileIncidentDataSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(incidentDataSchemaText)))
	if err != nil {
		panic(fmt.Sprintf("executor: incident_data schema is invalid: %v", err))
	}
	const resourceName = "incident_data.schema.json"
	if err := c.AddResource(resourceName, doc); err != nil {
		panic(fmt.Sprintf("executor: incident_data schema is invalid: %v", err))
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		panic(fmt.Sprintf("executor: incident_data schema failed to compile: %v", err))
	}
	return schema
}

// validateIncidentData parses raw (the `{...}` text captured from a
// log_incident directive) as JSON and validates it against
// incidentDataSchema, returning the decoded document on success.
func validateIncidentData(_ context.Context, raw string) (map[string]any, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: incident_data is not valid JSON: %v", ErrInvalidIncidentData, err)
	}
	if err := incidentDataSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIncidentData, err)
	}
	asMap, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: incident_data must be a JSON object", ErrInvalidIncidentData)
	}
	return asMap, nil
}
