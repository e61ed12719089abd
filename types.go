package goshape

// UnknownPolicy controls how drivers handle input members the shape does not
// declare.
type UnknownPolicy int

const (
	UnknownStrict UnknownPolicy = iota // Reject unknown keys with an error.
	UnknownStrip                       // Skip unknown keys.
)

// Strictness configures driver enforcement for duplicate keys and NaN
// handling.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn or Error (duplicate keys in one object).
	AllowNaN       bool     // Allow NaN/±Inf values.
}

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// PresenceOpt configures presence collection for WithMeta-style builds.
type PresenceOpt struct {
	Collect bool
	Include []string // path prefixes to keep (all when empty)
	Exclude []string // path prefixes to drop
	Intern  bool     // intern path strings
}
