package goshape

// Kind classifies what a Shape describes and therefore which builder
// operations apply to it.
type Kind int

const (
	KindScalar   Kind = iota // Leaf value set in one step (numbers, strings, time, ...).
	KindOpaque               // Leaf Go value without introspection; set as a whole.
	KindStruct               // Ordered named fields, each required unless defaulted.
	KindUnion                // Tagged union: one selected variant plus its fields.
	KindOptional             // None or Some(inner).
	KindResult               // Ok(value) or Err(value).
	KindList                 // Sequence of elements of one shape.
	KindMap                  // Key/value entries.
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindOpaque:
		return "opaque"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindOptional:
		return "optional"
	case KindResult:
		return "result"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "invalid"
}

// ScalarKind refines KindScalar shapes.
type ScalarKind int

const (
	ScalarNone ScalarKind = iota
	ScalarBool
	ScalarInt
	ScalarUint
	ScalarFloat
	ScalarString
	ScalarBytes
	ScalarTime
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarBool:
		return "bool"
	case ScalarInt:
		return "int"
	case ScalarUint:
		return "uint"
	case ScalarFloat:
		return "float"
	case ScalarString:
		return "string"
	case ScalarBytes:
		return "bytes"
	case ScalarTime:
		return "time"
	}
	return "none"
}

// DefaultSource says where a field's default value comes from.
type DefaultSource int

const (
	DefaultNone   DefaultSource = iota // No default: the field is required (unless Optional).
	DefaultFunc                        // Field-specific constant-default function.
	DefaultTypeOp                      // The field shape's own Default operation.
)
