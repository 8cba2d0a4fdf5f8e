package middleware

import (
	"context"

	"github.com/nightshift/inventory-backend/pkg/principal"
)

// TenantIDFromContext returns the authenticated tenant id, or "" for anonymous requests.
func TenantIDFromContext(ctx context.Context) string {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return ""
	}
	return p.TenantID.String()
}

// ActorIDFromContext returns the authenticated employee id, or "" for anonymous requests.
func ActorIDFromContext(ctx context.Context) string {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return ""
	}
	return p.ActorID.String()
}
