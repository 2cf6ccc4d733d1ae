package mcp

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaField describes one top-level field of a derived schema.
type SchemaField struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// SchemaDescriptor is the structural description of a record type, derived
// once at registration time. The zero-field descriptor is the no-arguments
// sentinel: it matches only an empty, null or absent payload.
type SchemaDescriptor struct {
	title      string
	fields     []SchemaField
	jsonSchema json.RawMessage
}

// DeriveSchema derives a SchemaDescriptor from a struct type. Field names
// come from `json` tags, documentation from `description` tags. A field is
// optional when it is a pointer or its json tag carries omitempty; everything
// else is required. Unknown top-level fields are rejected at validation time.
//
// Derivation is pure: the same type always yields the same descriptor.
func DeriveSchema(prototype interface{}, title string) (*SchemaDescriptor, error) {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema derivation requires a struct type, got %v", t)
	}

	d := &SchemaDescriptor{title: title}
	properties := map[string]interface{}{}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}

		name, optional, skip := parseJSONTag(f)
		if skip {
			continue
		}
		if f.Type.Kind() == reflect.Ptr {
			optional = true
		}

		prop := propertySchema(f.Type)
		description := f.Tag.Get("description")
		if description != "" {
			prop["description"] = description
		}
		properties[name] = prop

		fieldType, _ := prop["type"].(string)
		d.fields = append(d.fields, SchemaField{
			Name:        name,
			Type:        fieldType,
			Description: description,
			Required:    !optional,
		})
		if !optional {
			required = append(required, name)
		}
	}

	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if title != "" {
		schema["title"] = title
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal derived schema: %w", err)
	}
	d.jsonSchema = raw
	return d, nil
}

// Fields returns the top-level fields in declaration order.
func (d *SchemaDescriptor) Fields() []SchemaField {
	return d.fields
}

// JSONSchema returns the derived schema as raw JSON.
func (d *SchemaDescriptor) JSONSchema() json.RawMessage {
	return d.jsonSchema
}

// Validate checks raw arguments against the descriptor. The zero-field
// descriptor accepts null, {} or absent arguments uniformly and rejects
// anything carrying fields.
func (d *SchemaDescriptor) Validate(raw json.RawMessage) error {
	if isEmptyJSON(raw) {
		raw = json.RawMessage(`{}`)
	}

	if len(d.fields) == 0 {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(raw, &payload); err != nil {
			return &ValidationError{Reason: "arguments must be an object or null"}
		}
		for key := range payload {
			return &ValidationError{Field: key, Reason: "unexpected field, no arguments accepted"}
		}
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(d.jsonSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("invalid arguments: %v", err)}
	}
	if !result.Valid() {
		desc := result.Errors()[0]
		field := desc.Field()
		if field == "(root)" {
			field = ""
			if property, ok := desc.Details()["property"].(string); ok {
				field = property
			}
		}
		return &ValidationError{Field: field, Reason: desc.Description()}
	}
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func parseJSONTag(f reflect.StructField) (name string, optional bool, skip bool) {
	name = f.Name
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			optional = true
		}
	}
	return name, optional, false
}

func propertySchema(t reflect.Type) map[string]interface{} {
	switch t.Kind() {
	case reflect.Ptr:
		return propertySchema(t.Elem())
	case reflect.String:
		return map[string]interface{}{"type": "string"}
	case reflect.Bool:
		return map[string]interface{}{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]interface{}{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]interface{}{"type": "number"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return map[string]interface{}{"type": "string"}
		}
		return map[string]interface{}{
			"type":  "array",
			"items": propertySchema(t.Elem()),
		}
	case reflect.Map:
		return map[string]interface{}{"type": "object"}
	case reflect.Struct:
		properties := map[string]interface{}{}
		var required []string
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name, optional, skip := parseJSONTag(f)
			if skip {
				continue
			}
			if f.Type.Kind() == reflect.Ptr {
				optional = true
			}
			prop := propertySchema(f.Type)
			if description := f.Tag.Get("description"); description != "" {
				prop["description"] = description
			}
			properties[name] = prop
			if !optional {
				required = append(required, name)
			}
		}
		nested := map[string]interface{}{
			"type":                 "object",
			"properties":           properties,
			"additionalProperties": false,
		}
		if len(required) > 0 {
			nested["required"] = required
		}
		return nested
	default:
		// interfaces and anything else validate as free-form values
		return map[string]interface{}{}
	}
}
