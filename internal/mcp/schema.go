package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
)

// InputSchema builds the JSON schema for a tool's arguments. Object
// parameters are maps of strings, the only object shape tools accept.
func InputSchema(tool types.Tool) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(tool.Parameters)),
	}

	for _, p := range tool.Parameters {
		prop := &jsonschema.Schema{
			Type:        jsonType(p.Type),
			Description: p.Description,
		}
		switch prop.Type {
		case "array":
			items := p.Items
			if items == "" {
				items = "string"
			}
			prop.Items = &jsonschema.Schema{Type: jsonType(items)}
		case "object":
			prop.AdditionalProperties = &jsonschema.Schema{Type: "string"}
		}
		schema.Properties[p.Name] = prop

		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

func jsonType(t string) string {
	switch t {
	case "string", "integer", "number", "boolean", "array", "object":
		return t
	case "int":
		return "integer"
	case "bool":
		return "boolean"
	default:
		return "string"
	}
}
