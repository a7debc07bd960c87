package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// adminMiddleware only lets admins through; when roles are given, the admin must have one of them.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsAdmin() && (len(roles) == 0 || usr.HasAnyRole(roles...)) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// editorMiddleware only lets through users who can manage the catalog.
func editorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if usr.CanEditContent() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
