// Package handler defines the HTTP handlers of the fleet API.  Handlers own
// the transaction boundary: every mutating operation begins a transaction,
// performs its checks and writes through the repository ...Tx methods, and
// commits or rolls back as one unit.  Identity arrives through the JWT
// middleware; no default user is ever assumed.
package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// errMissingIdentity is returned by getUserID when the request context
// carries no authenticated user.  Handlers translate it into a 401.
var errMissingIdentity = errors.New("missing identity")

// getUserID extracts the authenticated user's id set by the JWT middleware.
// Every lifecycle operation takes the caller identity from here; there is
// deliberately no fallback value.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errMissingIdentity
}
