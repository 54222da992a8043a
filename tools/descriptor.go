// Package tools provides tool descriptors, typed call arguments, normalized
// results and an in-process registry of the built-in math tools.
package tools

import (
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	ParamInteger ParamType = "integer"
	ParamNumber  ParamType = "number"
	ParamArray   ParamType = "array"
	ParamText    ParamType = "text"
)

// ParseParamType maps a JSON-schema type word to a ParamType.
// Anything that is not integer, number or array is treated as text.
func ParseParamType(schemaType string) ParamType {
	switch strings.ToLower(strings.TrimSpace(schemaType)) {
	case "integer":
		return ParamInteger
	case "number":
		return ParamNumber
	case "array":
		return ParamArray
	default:
		return ParamText
	}
}

// SchemaType returns the JSON-schema word for the type.
func (p ParamType) SchemaType() string {
	if p == ParamText || p == "" {
		return "string"
	}
	return string(p)
}

// Param is one declared parameter.
type Param struct {
	Name string
	Type ParamType
}

// Descriptor describes a callable tool. Params are ordered; the order is the
// positional order used by the line protocol.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// Signature renders "name(a: integer, b: integer)" or "name(no parameters)".
func (d Descriptor) Signature() string {
	if len(d.Params) == 0 {
		return d.Name + "(no parameters)"
	}
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Type.SchemaType())
	}
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
}

// Schema builds the JSON-schema object for the parameters, keeping the
// declared order of properties.
func (d Descriptor) Schema() ([]byte, error) {
	schema := []byte(`{"type":"object","properties":{}}`)
	var err error
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		key := "properties." + escapePath(p.Name)
		schema, err = sjson.SetBytes(schema, key+".type", p.Type.SchemaType())
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", d.Name, err)
		}
		if p.Type == ParamArray {
			schema, err = sjson.SetBytes(schema, key+".items.type", "integer")
			if err != nil {
				return nil, fmt.Errorf("schema for %s: %w", d.Name, err)
			}
		}
		required = append(required, p.Name)
	}
	if len(required) > 0 {
		schema, err = sjson.SetBytes(schema, "required", required)
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", d.Name, err)
		}
	}
	return schema, nil
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

// escapePath escapes gjson/sjson path metacharacters in a single key.
func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
