package policy

// DenialCode is the stable machine-readable classification of a denial.
// Codes are safe to expose to untrusted clients; Decision.Reason is not.
type DenialCode string

const (
	CodeUnknownService   DenialCode = "unknown_service"
	CodeServiceDisabled  DenialCode = "service_disabled"
	CodeOperationDenied  DenialCode = "operation_not_permitted"
	CodeInvalidOperation DenialCode = "invalid_operation"
)

// Decision is the outcome of a single evaluation. It is produced fresh on
// every call and never cached: policy can change between calls.
type Decision struct {
	Allowed bool
	Code    DenialCode
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(code DenialCode, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}

// Evaluator decides whether a service may perform an operation under its
// current registry state. It is pure: no I/O, no side effects.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator creates an Evaluator. The registry is mandatory: an absent
// permission checker must be a construction-time error, never a silent
// pass-through at evaluation time.
func NewEvaluator(registry *Registry) *Evaluator {
	if registry == nil {
		panic("policy: NewEvaluator requires a non-nil registry")
	}

	return &Evaluator{registry: registry}
}

// Evaluate resolves the service's current policy and applies the decision
// table. Every branch is enumerated; values outside the closed enum reach
// the deny default by construction.
func (e *Evaluator) Evaluate(serviceID string, op Operation) Decision {
	if !op.Valid() {
		return deny(CodeInvalidOperation, "operation is not read or write")
	}

	state, ok := e.registry.Get(serviceID)
	if !ok {
		return deny(CodeUnknownService, "service is not registered")
	}

	if !state.Enabled {
		return deny(CodeServiceDisabled, "service is disabled")
	}

	switch state.Level {
	case PermissionReadWrite:
		return allow()
	case PermissionReadOnly:
		if op == OpRead {
			return allow()
		}

		return deny(CodeOperationDenied, "service is read-only")
	case PermissionDisabled:
		return deny(CodeServiceDisabled, "permission level is DISABLED")
	default:
		// Unrecognized levels deny everything.
		return deny(CodeServiceDisabled, "permission level is not recognized")
	}
}
