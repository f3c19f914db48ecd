package middleware

// identity.go provides the user-identity helper shared by the middleware in
// this package. The rate limiter keys buckets by user when a request is
// authenticated; unauthenticated requests share the "anon" identity.

import "github.com/labstack/echo/v4"

// currentUserID returns the authenticated user's id from context, or "anon"
// when the request carries no identity.
func currentUserID(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anon"
}
