package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RoleBilling      = "billing"
)

// Capability sets granted at route registration.
var (
	WardStaff       = []string{RoleDoctor, RoleNurse, RoleReceptionist}
	ClinicalStaff   = []string{RoleDoctor, RoleNurse}
	ChargeWriters   = []string{RoleDoctor, RoleNurse, RoleBilling}
	ChargeReaders   = []string{RoleBilling, RoleReceptionist, RoleDoctor, RoleNurse}
	BillingStaff    = []string{RoleBilling}
	BillReaders     = []string{RoleBilling, RoleReceptionist}
	MaintenanceCrew = []string{RoleNurse}
)

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, has := range userRoles {
				if has == RoleAdmin {
					return next(c)
				}
				for _, required := range roles {
					if has == required {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
