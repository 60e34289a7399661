package server

import (
	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/policy"
	"github.com/guardpost/guardpost/internal/server/biz"
)

// NewOperationTable builds the closed operation table the interceptor
// enforces. Every inbound operation must be declared here with an explicit
// class; anything absent is denied.
func NewOperationTable() (*intercept.Table, error) {
	return intercept.NewTable(map[string]intercept.Rule{
		"system.health":  intercept.AlwaysAllowed(),
		"system.version": intercept.AlwaysAllowed(),

		"eventlog.query":   intercept.DataAccess(biz.ServiceEventLog, policy.OpRead),
		"eventlog.append":  intercept.DataAccess(biz.ServiceEventLog, policy.OpWrite),
		"filesearch.query": intercept.DataAccess(biz.ServiceFileSearch, policy.OpRead),
		"filesearch.index": intercept.DataAccess(biz.ServiceFileSearch, policy.OpWrite),

		"admin.list_services":     intercept.Administrative(),
		"admin.enable_service":    intercept.Administrative(),
		"admin.disable_service":   intercept.Administrative(),
		"admin.set_level":         intercept.Administrative(),
		"admin.set_anonymization": intercept.Administrative(),
		"admin.reset_config":      intercept.Administrative(),
		"admin.audit_recent":      intercept.Administrative(),
	})
}
