package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"    // errors.Is comparisons against token error kinds
    "net/http"  // HTTP status codes for responses
    "strings"   // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/library-lending/internal/utils" // token verification
)

// Context keys set by JWTAuth for downstream middleware and handlers.
const (
    CtxUsername = "username"
    CtxRoles    = "roles"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject and role claims into the request
// context.  The provided secret must match the one used when issuing
// tokens.  An expired token is reported separately from a malformed or
// tampered one so clients know when a fresh login will help; both cases
// are 401, and neither reveals anything about stored resources.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "success": false, "message": "missing bearer token",
                })
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                msg := "invalid token"
                if errors.Is(err, utils.ErrTokenExpired) {
                    msg = "token expired"
                }
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "success": false, "message": msg,
                })
            }

            // Store the subject and role claims in the context so
            // handlers can identify the caller via c.Get().
            c.Set(CtxUsername, claims.Subject)
            c.Set(CtxRoles, claims.Roles)
            return next(c)
        }
    }
}
