package middleware

import (
	"net/http"
	"strings"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// RefreshCookie is the name of the HttpOnly cookie carrying the refresh token.
const RefreshCookie = "jwt"

// AccessTokenParser verifies an access token and returns its identity.
type AccessTokenParser interface {
	ParseAccess(token string) (models.Identity, error)
}

// JWTAuthMiddleware reads the Bearer access token and stores the verified
// identity in the context. A missing token is a 401, a bad one a 403. The
// refresh cookie is only accepted by /auth/refresh.
func JWTAuthMiddleware(tokens AccessTokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ""
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = parts[1]
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			identity, err := tokens.ParseAccess(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}
			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// CurrentIdentity returns the caller resolved by JWTAuthMiddleware.
func CurrentIdentity(c echo.Context) (models.Identity, bool) {
	identity, ok := c.Get(identityKey).(models.Identity)
	return identity, ok
}
