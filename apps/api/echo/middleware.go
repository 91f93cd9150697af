package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/user"
)

// roleMiddleware lets through users whose current role is one of roles.
// The role is read from the store, not from the token.
func roleMiddleware(svc user.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if core.ContainsString(roles, usr.Role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleAdmin)
}
