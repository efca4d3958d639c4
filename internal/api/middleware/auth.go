package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// accessClaims are the claims the identity service puts in access tokens.
// The "role" claim there is the database role, not the console role.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Auth verifies an optional bearer access token signed with the identity
// service's JWT secret and exposes its subject to later middleware. Requests
// without an Authorization header pass through and fall back to the browser
// session cookie.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}
			if jwtSecret == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "bearer tokens are not accepted")
			}

			claims := &accessClaims{}
			tkn, err := parser.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ctxAccessToken, parts[1])
			c.Set(ctxUserID, claims.Subject)
			c.Set(ctxEmail, claims.Email)

			return next(c)
		}
	}
}
