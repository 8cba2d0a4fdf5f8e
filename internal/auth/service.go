package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/nightshift/inventory-backend/internal/employees"
	pkgAuth "github.com/nightshift/inventory-backend/pkg/auth"
	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/internal/organizations"
)

const tokenTypeBearer = "Bearer"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB            txRunner
	Organizations organizations.Repository
	Refs          organizations.RefRecorder
	Employees     employees.Service
	JWTConfig     config.JWTConfig
	Logger        *logger.Logger
}

type service struct {
	db        txRunner
	orgs      organizations.Repository
	refs      organizations.RefRecorder
	employees employees.Service
	jwtCfg    config.JWTConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the signup/login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Organizations == nil {
		return nil, fmt.Errorf("organizations repository is required")
	}
	if params.Refs == nil {
		return nil, fmt.Errorf("organization references are required")
	}
	if params.Employees == nil {
		return nil, fmt.Errorf("employees service is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		db:        params.DB,
		orgs:      params.Organizations,
		refs:      params.Refs,
		employees: params.Employees,
		jwtCfg:    params.JWTConfig,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	employee, err := s.employees.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.FindByID(ctx, employee.OrgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return s.issue(org, employee)
}

func (s *service) issue(org *models.Organization, employee *models.Employee) (*LoginResponse, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgAuth.AccessTokenPayload{
		TenantID:  org.ID,
		ActorID:   employee.ID,
		Role:      employee.Role,
		ActorName: employee.Name,
		HumanID:   employee.HumanID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken:  token,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.jwtCfg.ExpirationMinutes * 60,
		Organization: OrganizationSummary{ID: org.ID.String(), Name: org.Name},
		Employee:     employees.FromModel(employee),
	}, nil
}
