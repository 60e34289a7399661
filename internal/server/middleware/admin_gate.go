package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guardpost/guardpost/internal/contexts"
)

// ErrAdminUnauthorized is returned by gates when the request carries no
// acceptable administrative credential.
var ErrAdminUnauthorized = errors.New("administrative authorization required")

// AdminGate authorizes administrative requests. Passing the gate only marks
// the context; the permission check still decides whether the operation runs.
type AdminGate interface {
	Authorize(r *http.Request) error
}

// StaticTokenGate authorizes requests carrying a configured bearer token.
// An empty configured token authorizes nothing.
type StaticTokenGate struct {
	token string
}

func NewStaticTokenGate(token string) *StaticTokenGate {
	return &StaticTokenGate{token: token}
}

func (g *StaticTokenGate) Authorize(r *http.Request) error {
	if g.token == "" {
		return ErrAdminUnauthorized
	}

	header := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ErrAdminUnauthorized
	}

	supplied := strings.TrimPrefix(header, prefix)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(g.token)) != 1 {
		return ErrAdminUnauthorized
	}

	return nil
}

// WithAdminGate marks the request context as admin-authorized when the gate
// passes. It never aborts by itself: administrative operations are denied by
// the permission check when the mark is absent.
func WithAdminGate(gate AdminGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Authorize(c.Request); err == nil {
			c.Request = c.Request.WithContext(contexts.WithAdminAuthorized(c.Request.Context()))
		}

		c.Next()
	}
}

// WithSource sets the request source on the context.
func WithSource(source contexts.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := contexts.WithSource(c.Request.Context(), source)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
