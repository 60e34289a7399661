// Package intercept fronts every inbound operation: it resolves the
// operation to a service and access type, consults the permission
// evaluator, and fails closed on any internal error.
package intercept

import (
	"context"
	"fmt"

	"github.com/guardpost/guardpost/internal/contexts"
	"github.com/guardpost/guardpost/internal/log"
	"github.com/guardpost/guardpost/internal/policy"
)

// Denial codes produced by the interceptor itself, in addition to the
// evaluator's codes.
const (
	CodeUnknownOperation  policy.DenialCode = "unknown_operation"
	CodeAdminAuthRequired policy.DenialCode = "admin_authorization_required"
	CodeInternal          policy.DenialCode = "internal_error"
)

// DeniedError is the structured, generic denial returned to callers. It
// carries a stable machine-readable code and no internal diagnostic text;
// internal reasons are logged, not returned.
type DeniedError struct {
	Code policy.DenialCode
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied (code=%s)", e.Code)
}

// Interceptor checks every inbound operation against the table and the
// evaluator.
type Interceptor struct {
	table     *Table
	evaluator *policy.Evaluator
}

// New creates an Interceptor. Both the table and the evaluator are
// mandatory; a missing checker is a construction-time error, not a runtime
// pass-through.
func New(table *Table, evaluator *policy.Evaluator) *Interceptor {
	if table == nil {
		panic("intercept: New requires a non-nil table")
	}

	if evaluator == nil {
		panic("intercept: New requires a non-nil evaluator")
	}

	return &Interceptor{table: table, evaluator: evaluator}
}

// Check resolves and authorizes one inbound operation. Any failure during
// resolution, including a panic, is indistinguishable from "no permission
// check ran" and therefore denies.
func (i *Interceptor) Check(ctx context.Context, operation string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "panic during operation check, denying",
				log.String("operation", operation),
				log.Any("panic", r),
			)

			err = &DeniedError{Code: CodeInternal}
		}
	}()

	rule, rerr := i.table.Resolve(operation)
	if rerr != nil {
		log.Warn(ctx, "denying unresolvable operation",
			log.String("operation", operation),
			log.Cause(rerr),
		)

		return &DeniedError{Code: CodeUnknownOperation}
	}

	switch rule.Class {
	case ClassAlwaysAllowed:
		return nil

	case ClassAdministrative:
		if !contexts.IsAdminAuthorized(ctx) {
			return &DeniedError{Code: CodeAdminAuthRequired}
		}

		return nil

	case ClassDataAccess:
		decision := i.evaluator.Evaluate(rule.ServiceID, rule.Op)
		if !decision.Allowed {
			log.Debug(ctx, "denied data access",
				log.String("operation", operation),
				log.String("service", rule.ServiceID),
				log.String("op", string(rule.Op)),
				log.String("code", string(decision.Code)),
				log.String("reason", decision.Reason),
			)

			return &DeniedError{Code: decision.Code}
		}

		return nil

	default:
		// Unreachable for tables built by NewTable; still deny.
		return &DeniedError{Code: CodeInternal}
	}
}
