package middleware

import (
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/pkg/auth"
	"github.com/PixieStack/indulge/pkg/context"
)

// HeaderAdminKey is the header carrying the admin API key
const HeaderAdminKey = "X-Admin-Key"

// Auth resolves the Authorization bearer token into the caller's identity on
// the request context. Handlers read the user id with context.GetUserID and
// never parse tokens themselves.
func Auth(issuer *auth.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return httperror.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return httperror.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			ctx = context.SetUserID(ctx, claims.Subject)
			ctx = context.SetUserRole(ctx, string(claims.Role))
			ctx = context.SetUserEmail(ctx, claims.Email)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// AdminKey guards admin routes with a shared key header. An empty configured
// key disables the admin surface entirely.
func AdminKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" || c.Request().Header.Get(HeaderAdminKey) != key {
				return httperror.NewHTTPError(http.StatusUnauthorized, "invalid admin key")
			}
			return next(c)
		}
	}
}
