package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/objects"
	"github.com/guardpost/guardpost/internal/policy"
)

func newTestRouter(t *testing.T, registry *policy.Registry, gate AdminGate) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	table, err := intercept.NewTable(map[string]intercept.Rule{
		"eventlog.query":  intercept.DataAccess("eventlog", policy.OpRead),
		"eventlog.append": intercept.DataAccess("eventlog", policy.OpWrite),
		"system.health":   intercept.AlwaysAllowed(),
		"admin.set_level": intercept.Administrative(),
	})
	require.NoError(t, err)

	interceptor := intercept.New(table, policy.NewEvaluator(registry))

	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	engine := gin.New()
	engine.Use(WithAdminGate(gate))
	engine.GET("/events", WithPermissionCheck(interceptor, "eventlog.query"), ok)
	engine.POST("/events", WithPermissionCheck(interceptor, "eventlog.append"), ok)
	engine.GET("/health", WithPermissionCheck(interceptor, "system.health"), ok)
	engine.PUT("/admin/level", WithPermissionCheck(interceptor, "admin.set_level"), ok)
	engine.GET("/ghost", WithPermissionCheck(interceptor, "ghost.query"), ok)

	return engine
}

func denialCode(t *testing.T, body []byte) string {
	t.Helper()

	var resp objects.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))

	return resp.Error.Code
}

func TestWithPermissionCheck(t *testing.T) {
	t.Run("disabled service is denied with a stable code", func(t *testing.T) {
		registry := policy.NewRegistry([]string{"eventlog"})
		engine := newTestRouter(t, registry, NewStaticTokenGate(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "service_disabled", denialCode(t, w.Body.Bytes()))
		assert.NotContains(t, w.Body.String(), "eventlog")
	})

	t.Run("enabled service passes reads but not writes", func(t *testing.T) {
		registry := policy.NewRegistry([]string{"eventlog"})
		_, err := registry.Set("eventlog", policy.State{
			Enabled: true,
			Level:   policy.PermissionReadOnly,
		})
		require.NoError(t, err)

		engine := newTestRouter(t, registry, NewStaticTokenGate(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "operation_not_permitted", denialCode(t, w.Body.Bytes()))
	})

	t.Run("operation missing from the table is denied", func(t *testing.T) {
		registry := policy.NewRegistry([]string{"eventlog"})
		engine := newTestRouter(t, registry, NewStaticTokenGate(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ghost", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "unknown_operation", denialCode(t, w.Body.Bytes()))
	})

	t.Run("always allowed operation needs no permission", func(t *testing.T) {
		registry := policy.NewRegistry([]string{"eventlog"})
		engine := newTestRouter(t, registry, NewStaticTokenGate(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("administrative operation requires the gate", func(t *testing.T) {
		registry := policy.NewRegistry([]string{"eventlog"})
		engine := newTestRouter(t, registry, NewStaticTokenGate("sekrit"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/admin/level", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "admin_authorization_required", denialCode(t, w.Body.Bytes()))

		req := httptest.NewRequest(http.MethodPut, "/admin/level", nil)
		req.Header.Set("Authorization", "Bearer sekrit")

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestStaticTokenGate(t *testing.T) {
	t.Run("empty configured token authorizes nothing", func(t *testing.T) {
		gate := NewStaticTokenGate("")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer ")

		assert.ErrorIs(t, gate.Authorize(req), ErrAdminUnauthorized)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		gate := NewStaticTokenGate("sekrit")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")

		assert.ErrorIs(t, gate.Authorize(req), ErrAdminUnauthorized)
	})

	t.Run("missing bearer prefix is rejected", func(t *testing.T) {
		gate := NewStaticTokenGate("sekrit")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "sekrit")

		assert.ErrorIs(t, gate.Authorize(req), ErrAdminUnauthorized)
	})

	t.Run("matching token passes", func(t *testing.T) {
		gate := NewStaticTokenGate("sekrit")

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer sekrit")

		assert.NoError(t, gate.Authorize(req))
	})
}
