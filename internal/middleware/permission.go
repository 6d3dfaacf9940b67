package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/library-lending/internal/authz" // static permission table
)

// RequirePermission returns a middleware function that enforces the
// static permission table for one operation group.  It assumes JWTAuth
// has already verified the token and stored the role claims in the
// context: a missing role set means the caller never authenticated
// (401), while a present but insufficient one is a role problem (403).
// Neither response reveals whether the requested resource exists.
func RequirePermission(p authz.Permission) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            roles, ok := c.Get(CtxRoles).([]string)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "success": false, "message": "authentication required",
                })
            }
            if !authz.Allow(p, roles) {
                return c.JSON(http.StatusForbidden, echo.Map{
                    "success": false, "message": "forbidden",
                })
            }
            return next(c)
        }
    }
}
