package middleware // reusable HTTP middleware for the fleet API

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject claim into the request context.  Tokens
// are issued by the company identity provider; this service only verifies
// them.  Handlers read the authenticated user via `c.Get("user_id")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Accept only HMAC-signed tokens; a token signed with any other
			// method is rejected regardless of its payload.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// The subject is the user id every lifecycle operation records
			// as the owner of the mutation.
			c.Set("user_id", claims["sub"])
			c.Set("role", claims["role"])
			return next(c)
		}
	}
}
