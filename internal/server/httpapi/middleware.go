package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avolkovs/authapi/internal/server/accounts"
	"github.com/avolkovs/authapi/internal/server/auth"
)

// Context keys set by the bearer middleware.
const (
	ctxKeyClaims      = "claims"
	ctxKeyAccessToken = "access_token"
)

// Bearer verifies the Authorization header and stashes the parsed claims
// and the raw token on the request context. The raw token is kept because
// logout revokes refresh tokens by their paired access-token value.
func Bearer(issuer *auth.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, apiResponse{
					Status:  string(accounts.StatusUnauthorized),
					Message: "Missing bearer token.",
				})
			}
			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, apiResponse{
					Status:  string(accounts.StatusUnauthorized),
					Message: "Invalid token.",
				})
			}
			c.Set(ctxKeyClaims, claims)
			c.Set(ctxKeyAccessToken, parts[1])
			return next(c)
		}
	}
}
