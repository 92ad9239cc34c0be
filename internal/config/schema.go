package config

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// routingSchema is the JSON Schema for version 1 routing config documents.
// Field-level semantics (weight ranges, threshold ordering) stay in the
// loader; the schema catches structural mistakes with a path to the error.
const routingSchema = `{
  "type": "object",
  "required": ["version", "domains"],
  "properties": {
    "version": {"type": "integer"},
    "thresholds": {
      "type": "object",
      "required": ["high", "medium"],
      "properties": {
        "high": {"type": "number", "minimum": 0, "maximum": 1},
        "medium": {"type": "number", "minimum": 0, "maximum": 1}
      }
    },
    "complexity_indicators": {"type": "array", "items": {"type": "string"}},
    "priority_indicators": {"type": "array", "items": {"type": "string"}},
    "domains": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "primary"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "primary": {"type": "array", "items": {"type": "string"}, "minItems": 1},
          "secondary": {"type": "array", "items": {"type": "string"}},
          "weights": {
            "type": "object",
            "properties": {
              "primary": {"type": "number"},
              "secondary": {"type": "number"},
              "complexity": {"type": "number"},
              "priority": {"type": "number"}
            }
          }
        }
      }
    }
  }
}`

var compiledRoutingSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("routing.json", strings.NewReader(routingSchema)); err != nil {
		panic(fmt.Sprintf("config: add schema resource: %v", err))
	}
	schema, err := compiler.Compile("routing.json")
	if err != nil {
		panic(fmt.Sprintf("config: compile routing schema: %v", err))
	}
	return schema
}

// validateSchema validates a raw YAML document against the routing schema
// and returns human-readable errors with field paths.
// yaml.v3 decodes mappings as map[string]any, which the schema validator
// accepts directly without a JSON round trip.
func validateSchema(data []byte) []string {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []string{err.Error()}
	}

	if err := compiledRoutingSchema.Validate(doc); err != nil {
		validationErr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []string{err.Error()}
		}
		var errs []string
		collectValidationErrors(validationErr, &errs)
		return errs
	}
	return nil
}

// collectValidationErrors recursively extracts validation error messages.
func collectValidationErrors(err *jsonschema.ValidationError, errs *[]string) {
	if err.Message != "" {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", path, err.Message))
	}
	for _, cause := range err.Causes {
		collectValidationErrors(cause, errs)
	}
}
