package middleware

import (
	"net/http"

	"github.com/nightshift/inventory-backend/api/responses"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

// RequireAdmin rejects principals that do not administer their tenant.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return requirePrincipal(logg, principal.Principal.IsAdmin, "admin role required")
}

// RequireManager admits ADMIN and MANAGER principals.
func RequireManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return requirePrincipal(logg, principal.Principal.CanManage, "manager role required")
}

func requirePrincipal(logg *logger.Logger, allowed func(principal.Principal) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !allowed(p) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
