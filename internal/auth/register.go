package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/employees"
	"github.com/nightshift/inventory-backend/internal/organizations"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Register creates the organization and its admin employee in one transaction and signs the admin in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	name := strings.TrimSpace(req.OrganizationName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name is required")
	}
	org := &models.Organization{
		Name:     name,
		MobileNo: strings.TrimSpace(req.MobileNo),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		GSTNo:    trimmedPtr(req.GSTNo),
		Address:  trimmedPtr(req.Address),
	}
	if org.MobileNo == "" || org.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization email and mobile number are required")
	}

	var admin *models.Employee
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orgs.WithTx(tx)
		if err := ensureOrganizationFree(ctx, repo, org); err != nil {
			return err
		}
		if err := repo.Create(ctx, org); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "organization already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create organization")
		}
		created, err := s.employees.CreateAdmin(ctx, tx, org, employees.AdminInput{
			Name:     req.AdminName,
			Email:    org.Email,
			Password: req.Password,
		})
		if err != nil {
			return err
		}
		admin = created
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "register organization")
	}

	ctx = s.logg.WithTenantID(ctx, org.ID.String())
	if err := s.refs.AppendRef(ctx, org.ID, enums.OrganizationRefEmployee, admin.ID); err != nil {
		s.logg.Error(ctx, "append admin reference", err)
	}
	s.logg.Info(ctx, "organization registered")
	return s.issue(org, admin)
}

func ensureOrganizationFree(ctx context.Context, repo organizations.Repository, org *models.Organization) error {
	fields := map[string]string{"email": org.Email, "mobile_no": org.MobileNo}
	if org.GSTNo != nil {
		fields["gst_no"] = *org.GSTNo
	}
	for _, field := range []string{"email", "mobile_no", "gst_no"} {
		value, ok := fields[field]
		if !ok {
			continue
		}
		exists, err := repo.ExistsByField(ctx, field, value, uuid.Nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check organization uniqueness")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "organization already registered").
				WithDetails(map[string]any{"field": field})
		}
	}
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
