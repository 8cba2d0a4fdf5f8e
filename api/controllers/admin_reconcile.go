package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/api/responses"
	"github.com/nightshift/inventory-backend/internal/reconcile"
	"github.com/nightshift/inventory-backend/pkg/logger"
)

type tenantReconciler interface {
	RunTenant(ctx context.Context, tenantID uuid.UUID) (reconcile.Report, error)
}

// AdminReconcile rebuilds the mirrors of the caller's tenant on demand.
func AdminReconcile(svc tenantReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("reconcile"))
			return
		}
		p, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.RunTenant(r.Context(), p.TenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"customers": report.Customers,
				"vendors":   report.Vendors,
				"sequences": report.Sequences,
			})
			logg.Info(ctx, "tenant mirrors reconciled")
		}
		responses.WriteSuccess(w, report)
	}
}
