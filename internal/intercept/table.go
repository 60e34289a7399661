package intercept

import (
	"fmt"

	"github.com/guardpost/guardpost/internal/policy"
)

// Class is the explicit classification of an inbound operation. There is no
// implicit class: operations absent from the table are denied.
type Class string

const (
	// ClassDataAccess operations resolve to a (service, read|write) pair
	// and are gated by the permission evaluator.
	ClassDataAccess Class = "data_access"

	// ClassAlwaysAllowed operations (health, version) bypass the evaluator
	// by explicit declaration.
	ClassAlwaysAllowed Class = "always_allowed"

	// ClassAdministrative operations require the administrative
	// authorization gate to have passed for the request context.
	ClassAdministrative Class = "administrative"
)

// Rule is one row of the operation table.
type Rule struct {
	Class     Class
	ServiceID string
	Op        policy.Operation
}

// DataAccess declares a data-access operation against a service.
func DataAccess(serviceID string, op policy.Operation) Rule {
	return Rule{Class: ClassDataAccess, ServiceID: serviceID, Op: op}
}

// AlwaysAllowed declares an operation that never requires a permission check.
func AlwaysAllowed() Rule {
	return Rule{Class: ClassAlwaysAllowed}
}

// Administrative declares an operation that requires the admin gate.
func Administrative() Rule {
	return Rule{Class: ClassAdministrative}
}

// Table is the static, closed mapping from operation identifiers to rules.
type Table struct {
	rules map[string]Rule
}

// NewTable validates and freezes the operation mapping.
func NewTable(rules map[string]Rule) (*Table, error) {
	frozen := make(map[string]Rule, len(rules))

	for operation, rule := range rules {
		switch rule.Class {
		case ClassDataAccess:
			if rule.ServiceID == "" {
				return nil, fmt.Errorf("intercept: operation %q: data access rule requires a service", operation)
			}

			if !rule.Op.Valid() {
				return nil, fmt.Errorf("intercept: operation %q: invalid operation type %q", operation, rule.Op)
			}
		case ClassAlwaysAllowed, ClassAdministrative:
			if rule.ServiceID != "" || rule.Op != "" {
				return nil, fmt.Errorf("intercept: operation %q: %s rule must not carry a target", operation, rule.Class)
			}
		default:
			return nil, fmt.Errorf("intercept: operation %q: unknown class %q", operation, rule.Class)
		}

		frozen[operation] = rule
	}

	return &Table{rules: frozen}, nil
}

// Resolve looks up an operation. Unknown identifiers are an error; the
// interceptor treats that as a denial, never as a pass-through.
func (t *Table) Resolve(operation string) (Rule, error) {
	rule, ok := t.rules[operation]
	if !ok {
		return Rule{}, fmt.Errorf("intercept: operation %q is not in the table", operation)
	}

	return rule, nil
}
