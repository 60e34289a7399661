package audit

import "time"

// Action classifies an audit entry.
type Action string

const (
	ActionServiceEnable    Action = "SERVICE_ENABLE"
	ActionServiceDisable   Action = "SERVICE_DISABLE"
	ActionPermissionChange Action = "PERMISSION_CHANGE"
	ActionPIIToggle        Action = "PII_TOGGLE"
	ActionConfigReset      Action = "CONFIG_RESET"
	ActionStartup          Action = "STARTUP"
)

// Entry is one immutable line of the audit trail. The timestamp is always
// stamped by the logger; caller-supplied values are discarded so write order
// cannot be forged.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ServiceID string    `json:"service_id"`
	Previous  string    `json:"previous_value,omitempty"`
	New       string    `json:"new_value,omitempty"`
	Source    string    `json:"source,omitempty"`
}
