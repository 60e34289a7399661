// Package policy holds the per-service policy state, the in-memory
// registry that owns it, and the permission evaluator that decides whether
// a service may perform a read or write operation.
package policy

import "maps"

// PermissionLevel is the closed set of access levels a service can hold.
// Any value outside this set is treated as DISABLED everywhere.
type PermissionLevel string

const (
	// PermissionDisabled denies all access.
	PermissionDisabled PermissionLevel = "DISABLED"
	// PermissionReadOnly allows reads only.
	PermissionReadOnly PermissionLevel = "READ_ONLY"
	// PermissionReadWrite allows reads and writes.
	PermissionReadWrite PermissionLevel = "READ_WRITE"
)

// Valid reports whether the level is one of the three known values.
func (l PermissionLevel) Valid() bool {
	switch l {
	case PermissionDisabled, PermissionReadOnly, PermissionReadWrite:
		return true
	default:
		return false
	}
}

// Operation is the kind of access being requested.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// Valid reports whether the operation is read or write.
func (o Operation) Valid() bool {
	return o == OpRead || o == OpWrite
}

// State is the live policy of a single service. It is mutated only through
// the administrative operation handler.
type State struct {
	ServiceID    string          `conf:"service_id" yaml:"service_id" json:"service_id"`
	Enabled      bool            `conf:"enabled" yaml:"enabled" json:"enabled"`
	Level        PermissionLevel `conf:"permission_level" yaml:"permission_level" json:"permission_level"`
	AnonymizePII bool            `conf:"enable_anonymization" yaml:"enable_anonymization" json:"enable_anonymization"`

	// Extra carries service-specific settings this core does not interpret.
	Extra map[string]any `conf:"extra" yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	if s.Extra != nil {
		out.Extra = maps.Clone(s.Extra)
	}

	return out
}

// DefaultState is the secure default for a service: disabled, no access.
func DefaultState(serviceID string) State {
	return State{
		ServiceID: serviceID,
		Enabled:   false,
		Level:     PermissionDisabled,
	}
}
