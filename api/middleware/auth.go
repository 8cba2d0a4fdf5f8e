package middleware

import (
	"net/http"

	"github.com/nightshift/inventory-backend/api/responses"
	pkgAuth "github.com/nightshift/inventory-backend/pkg/auth"
	"github.com/nightshift/inventory-backend/pkg/config"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

// Auth resolves the bearer token into a principal. Every route behind it runs
// scoped to that principal's tenant.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(cfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := principal.WithContext(r.Context(), p)
			if logg != nil {
				ctx = logg.WithPrincipal(ctx, p.TenantID.String(), p.ActorID.String(), string(p.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(cfg config.JWTConfig, r *http.Request) (principal.Principal, error) {
	token, err := pkgAuth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return principal.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return principal.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	return claims.Principal()
}
