package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/pkg/enums"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	TenantID  uuid.UUID
	ActorID   uuid.UUID
	Role      enums.ActorRole
	ActorName string
	HumanID   string
}

// AccessTokenClaims represents the typed JWT issued to employees.
type AccessTokenClaims struct {
	TenantID  uuid.UUID       `json:"tenant_id"`
	ActorID   uuid.UUID       `json:"actor_id"`
	Role      enums.ActorRole `json:"role"`
	ActorName string          `json:"name,omitempty"`
	HumanID   string          `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the identity core operations run under.
func (c *AccessTokenClaims) Principal() (principal.Principal, error) {
	p := principal.Principal{
		TenantID:  c.TenantID,
		ActorID:   c.ActorID,
		Role:      c.Role,
		ActorName: c.ActorName,
	}
	if err := p.Validate(); err != nil {
		return principal.Principal{}, err
	}
	return p, nil
}
