package intercept_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardpost/guardpost/internal/contexts"
	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/policy"
)

func newInterceptor(t *testing.T) (*intercept.Interceptor, *policy.Registry) {
	t.Helper()

	registry := policy.NewRegistry([]string{"eventlog", "filesearch"})
	evaluator := policy.NewEvaluator(registry)

	table, err := intercept.NewTable(map[string]intercept.Rule{
		"eventlog.query":     intercept.DataAccess("eventlog", policy.OpRead),
		"eventlog.append":    intercept.DataAccess("eventlog", policy.OpWrite),
		"filesearch.query":   intercept.DataAccess("filesearch", policy.OpRead),
		"system.health":      intercept.AlwaysAllowed(),
		"admin.set_level":    intercept.Administrative(),
		"admin.reset_config": intercept.Administrative(),
	})
	require.NoError(t, err)

	return intercept.New(table, evaluator), registry
}

func denialCode(t *testing.T, err error) policy.DenialCode {
	t.Helper()

	var denied *intercept.DeniedError

	require.Error(t, err)
	require.True(t, errors.As(err, &denied))

	return denied.Code
}

func TestCheckUnknownOperationDenies(t *testing.T) {
	interceptor, _ := newInterceptor(t)

	err := interceptor.Check(context.Background(), "eventlog.purge")
	assert.Equal(t, intercept.CodeUnknownOperation, denialCode(t, err))
}

func TestCheckMalformedOperationDenies(t *testing.T) {
	interceptor, _ := newInterceptor(t)

	for _, op := range []string{"", "   ", "eventlog.query\n", "EVENTLOG.QUERY"} {
		err := interceptor.Check(context.Background(), op)
		assert.Equal(t, intercept.CodeUnknownOperation, denialCode(t, err), "operation %q", op)
	}
}

func TestCheckDataAccess(t *testing.T) {
	interceptor, registry := newInterceptor(t)
	ctx := context.Background()

	// Default policy denies.
	err := interceptor.Check(ctx, "eventlog.query")
	assert.Equal(t, policy.CodeServiceDisabled, denialCode(t, err))

	_, serr := registry.Set("eventlog", policy.State{
		Enabled: true,
		Level:   policy.PermissionReadOnly,
	})
	require.NoError(t, serr)

	assert.NoError(t, interceptor.Check(ctx, "eventlog.query"))

	err = interceptor.Check(ctx, "eventlog.append")
	assert.Equal(t, policy.CodeOperationDenied, denialCode(t, err))
}

func TestCheckAlwaysAllowed(t *testing.T) {
	interceptor, _ := newInterceptor(t)

	assert.NoError(t, interceptor.Check(context.Background(), "system.health"))
}

func TestCheckAdministrativeRequiresGate(t *testing.T) {
	interceptor, _ := newInterceptor(t)
	ctx := context.Background()

	err := interceptor.Check(ctx, "admin.set_level")
	assert.Equal(t, intercept.CodeAdminAuthRequired, denialCode(t, err))

	assert.NoError(t, interceptor.Check(contexts.WithAdminAuthorized(ctx), "admin.set_level"))
}

func TestCheckDeniedErrorIsGeneric(t *testing.T) {
	interceptor, _ := newInterceptor(t)

	err := interceptor.Check(context.Background(), "eventlog.query")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "disabled", "internal reason must not leak")
}

func TestNewTableRejectsInvalidRules(t *testing.T) {
	t.Run("data access without service", func(t *testing.T) {
		_, err := intercept.NewTable(map[string]intercept.Rule{
			"bad": {Class: intercept.ClassDataAccess, Op: policy.OpRead},
		})
		assert.Error(t, err)
	})

	t.Run("data access with invalid op", func(t *testing.T) {
		_, err := intercept.NewTable(map[string]intercept.Rule{
			"bad": {Class: intercept.ClassDataAccess, ServiceID: "eventlog", Op: "delete"},
		})
		assert.Error(t, err)
	})

	t.Run("always allowed with target", func(t *testing.T) {
		_, err := intercept.NewTable(map[string]intercept.Rule{
			"bad": {Class: intercept.ClassAlwaysAllowed, ServiceID: "eventlog"},
		})
		assert.Error(t, err)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := intercept.NewTable(map[string]intercept.Rule{
			"bad": {Class: "maybe"},
		})
		assert.Error(t, err)
	})
}

func TestNewRequiresDependencies(t *testing.T) {
	table, err := intercept.NewTable(nil)
	require.NoError(t, err)

	assert.Panics(t, func() { intercept.New(nil, policy.NewEvaluator(policy.NewRegistry(nil))) })
	assert.Panics(t, func() { intercept.New(table, nil) })
}
