// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight PIN guard for destructive endpoints
// (deletes, sale voids, cash-session closes). Clients present the PIN in the
// X-Admin-Pin request header; requests with a missing or wrong PIN are
// rejected with 401 before the handler runs.
//
// The guard is deliberately not an authentication system: it is a second
// confirmation step for operations that are hard to undo, matching how a
// point-of-sale terminal asks for a supervisor code.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAdminPIN is the request header carrying the supervisor PIN for
// destructive operations.
const HeaderAdminPIN = "X-Admin-Pin"

// RequireAdminPIN returns a middleware that rejects requests whose
// X-Admin-Pin header does not match pin.
//
// When pin is empty the guard is disabled and every request passes; this is
// the development default. Comparison is constant-time so the PIN cannot be
// recovered by timing probes.
func RequireAdminPIN(pin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pin == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAdminPIN)
		if subtle.ConstantTimeCompare([]byte(got), []byte(pin)) != 1 {
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": asString(rid),
				"code":       "admin_pin_required",
				"message":    "a valid X-Admin-Pin header is required for this operation",
			})
			return
		}
		c.Next()
	}
}
