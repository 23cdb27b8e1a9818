package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/exoshivam/smart-attendance/core"
)

// roleMiddleware lets through callers holding any of roles.
// Teachers must also be bound to a school.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role != role {
					continue
				}
				if role == core.RoleTeacher && claims.SchoolID == "" {
					return errNoSchool
				}
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
