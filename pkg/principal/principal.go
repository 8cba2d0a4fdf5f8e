package principal

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
)

// Principal identifies the tenant and actor a core operation runs on behalf of.
type Principal struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	Role     enums.ActorRole
	// ActorName is snapshotted onto records the actor creates.
	ActorName string
}

// New builds a principal from raw identifiers carried in a token.
func New(tenantID, actorID, role, name string) (Principal, error) {
	tenant, err := uuid.Parse(strings.TrimSpace(tenantID))
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid tenant id")
	}
	actor, err := uuid.Parse(strings.TrimSpace(actorID))
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id")
	}
	parsedRole, err := enums.ParseActorRole(role)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return Principal{TenantID: tenant, ActorID: actor, Role: parsedRole, ActorName: name}, nil
}

// Validate ensures the principal can scope tenant data.
func (p Principal) Validate() error {
	if p.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant required")
	}
	if !p.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role required")
	}
	return nil
}

// IsAdmin reports whether the actor administers the tenant.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.ActorRoleAdmin
}

// CanManage reports whether the actor may mutate tenant configuration such as employees.
func (p Principal) CanManage() bool {
	return p.IsAdmin() || p.Role == enums.ActorRoleManager
}

type ctxKey struct{}

// WithContext stores the principal for transport layers that resolve it from a request.
func WithContext(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal placed by the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
