package jsonschema

// Draft is the dialect FromShape declares on the root schema.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	// Core
	Schema  string             `json:"$schema,omitempty"`
	Ref     string             `json:"$ref,omitempty"`
	Defs    map[string]*Schema `json:"$defs,omitempty"`
	Title   string             `json:"title,omitempty"`
	Type    string             `json:"type,omitempty"`
	Format  string             `json:"format,omitempty"`
	Const   any                `json:"const,omitempty"`
	Default any                `json:"default,omitempty"`

	// Numbers
	Minimum *float64 `json:"minimum,omitempty"`

	// String
	ContentEncoding string `json:"contentEncoding,omitempty"`
	Pattern         string `json:"pattern,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	PropertyNames        *Schema            `json:"propertyNames,omitempty"`

	// Array
	Items       any       `json:"items,omitempty"`
	PrefixItems []*Schema `json:"prefixItems,omitempty"`
	MinItems    *int      `json:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`

	// Composition
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
}
