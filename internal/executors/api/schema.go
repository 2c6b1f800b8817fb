package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaResource = "response.schema.json"

// validateSchema checks body against a JSON Schema given inline in the step.
// Both documents are round-tripped through JSON so values decoded from YAML
// take the shapes the validator expects.
func validateSchema(schema map[string]any, body any) error {
	schemaDoc, err := normalize(schema)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	instance, err := normalize(body)
	if err != nil {
		return fmt.Errorf("response body: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	if err := sch.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("response does not match schema: %s", summarize(ve))
		}
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

func summarize(ve *jsonschema.ValidationError) string {
	leaves := flatten(ve)
	parts := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		location := "/" + strings.Join(leaf.InstanceLocation, "/")
		parts = append(parts, fmt.Sprintf("%s: %v", location, leaf.ErrorKind))
	}
	return strings.Join(parts, "; ")
}

func flatten(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var flat []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flatten(cause)...)
	}
	return flat
}
