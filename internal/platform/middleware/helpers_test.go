package middleware

import (
	"context"
	"net/http"

	"github.com/GreycodeDev/hospital-management-sub000/internal/platform/auth"
)

func contextWithUser(req *http.Request, userID string, roles ...string) context.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	return context.WithValue(ctx, auth.UserRolesKey, roles)
}
