package organizations

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

// RefRecorder maintains the organization back-reference lists. Entity services call it
// after their own write; a failed call leaves drift that reconcile repairs.
type RefRecorder interface {
	AppendRef(ctx context.Context, tenantID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error
	RemoveRef(ctx context.Context, tenantID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error
}

// Service exposes the organization aggregate.
type Service interface {
	RefRecorder
	Get(ctx context.Context, p principal.Principal) (*OrganizationDTO, error)
	Update(ctx context.Context, p principal.Principal, input UpdateInput) (*OrganizationDTO, error)
	Refs(ctx context.Context, tenantID uuid.UUID) (RefLists, error)
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

type service struct {
	repo Repository
}

// NewService builds the organization service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("organization repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) AppendRef(ctx context.Context, tenantID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error {
	if err := validateRef(tenantID, kind, refID); err != nil {
		return err
	}
	if err := s.repo.AppendRef(ctx, &models.OrganizationRef{OrgID: tenantID, Kind: kind, RefID: refID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append organization reference")
	}
	return nil
}

func (s *service) RemoveRef(ctx context.Context, tenantID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error {
	if err := validateRef(tenantID, kind, refID); err != nil {
		return err
	}
	if err := s.repo.RemoveRef(ctx, tenantID, kind, refID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove organization reference")
	}
	return nil
}

func (s *service) Get(ctx context.Context, p principal.Principal) (*OrganizationDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	org, err := s.repo.FindByID(ctx, p.TenantID)
	if err != nil {
		return nil, lookupError(err)
	}
	lists, err := s.Refs(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(org, lists)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, p principal.Principal, input UpdateInput) (*OrganizationDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can update the organization")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	unique := map[string]*string{"email": input.Email, "mobile_no": input.MobileNo, "gst_no": input.GSTNo}
	for _, field := range []string{"email", "mobile_no", "gst_no"} {
		value := unique[field]
		if value == nil {
			continue
		}
		normalized := strings.TrimSpace(*value)
		if field == "email" {
			normalized = strings.ToLower(normalized)
		}
		exists, err := s.repo.ExistsByField(ctx, field, normalized, p.TenantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check organization uniqueness")
		}
		if exists {
			return nil, duplicateError(field)
		}
		updates[field] = normalized
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, p.TenantID, updates); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "organization already exists")
			}
			return nil, lookupError(err)
		}
	}
	return s.Get(ctx, p)
}

func (s *service) Refs(ctx context.Context, tenantID uuid.UUID) (RefLists, error) {
	refs, err := s.repo.ListRefs(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organization references")
	}
	return groupRefs(refs), nil
}

func (s *service) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organizations")
	}
	return ids, nil
}

func validateRef(tenantID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error {
	if tenantID == uuid.Nil || refID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant and reference ids are required")
	}
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid reference kind %q", kind))
	}
	return nil
}

func lookupError(err error) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
}

func duplicateError(field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "organization already exists").
		WithDetails(map[string]any{"field": field})
}
