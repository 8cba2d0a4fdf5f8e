package employees

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	"github.com/nightshift/inventory-backend/pkg/config"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
	"github.com/nightshift/inventory-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	defaultTempPasswordLength = 12
	emailUniqueIndex          = "idx_employees_email"
)

// Service manages tenant employees and their credentials.
type Service interface {
	Create(ctx context.Context, p principal.Principal, input CreateInput) (*CreatedEmployee, error)
	Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*EmployeeDTO, error)
	List(ctx context.Context, p principal.Principal) ([]EmployeeDTO, error)
	Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*EmployeeDTO, error)
	Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error
	ChangePassword(ctx context.Context, p principal.Principal, input ChangePasswordInput) error
	Authenticate(ctx context.Context, email, password string) (*models.Employee, error)
	CreateAdmin(ctx context.Context, tx *gorm.DB, org *models.Organization, input AdminInput) (*models.Employee, error)
}

// AdminInput is the first employee of a freshly registered organization.
type AdminInput struct {
	Name     string
	Email    string
	Password string
}

// ServiceParams wires employee dependencies.
type ServiceParams struct {
	Repo               Repository
	Sequence           sequence.Generator
	Refs               organizations.RefRecorder
	Logger             *logger.Logger
	Password           config.PasswordConfig
	TempPasswordLength int
}

type service struct {
	repo       Repository
	sequence   sequence.Generator
	refs       organizations.RefRecorder
	logg       *logger.Logger
	passwords  config.PasswordConfig
	tempLength int
	now        func() time.Time
}

// NewService builds the employee service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("employee repository required")
	case params.Sequence == nil:
		return nil, fmt.Errorf("sequence generator required")
	case params.Refs == nil:
		return nil, fmt.Errorf("organization references required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	tempLength := params.TempPasswordLength
	if tempLength <= 0 {
		tempLength = defaultTempPasswordLength
	}
	return &service{
		repo:       params.Repo,
		sequence:   params.Sequence,
		refs:       params.Refs,
		logg:       params.Logger,
		passwords:  params.Password,
		tempLength: tempLength,
		now:        time.Now,
	}, nil
}

// Create adds an employee with an EMP-### id. The employee must change the password on first login.
func (s *service) Create(ctx context.Context, p principal.Principal, input CreateInput) (*CreatedEmployee, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers can add employees")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	role, err := enums.ParseActorRole(input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if role == enums.ActorRoleAdmin && !p.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can add admins")
	}
	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, s.repo, email, uuid.Nil); err != nil {
		return nil, err
	}

	password := input.Password
	var temp string
	if password == "" {
		if temp, err = security.GenerateTempPassword(s.tempLength); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password = temp
	} else if err := security.CheckPasswordPolicy(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := security.HashPassword(password, s.passwords)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	orgName, err := s.repo.OrganizationName(ctx, p.TenantID)
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	humanID, err := s.sequence.NextID(ctx, p.TenantID, enums.EntityTypeEmployee)
	if err != nil {
		return nil, err
	}

	hireDate := s.now().UTC()
	if input.HireDate != nil {
		hireDate = input.HireDate.UTC()
	}
	employee := &models.Employee{
		OrgID:              p.TenantID,
		OrgName:            orgName,
		HumanID:            humanID,
		Name:               name,
		Email:              email,
		PasswordHash:       hash,
		MustChangePassword: true,
		Role:               role,
		Department:         trimmedPtr(input.Department),
		Phone:              trimmedPtr(input.Phone),
		Location:           trimmedPtr(input.Location),
		Experience:         input.Experience,
		Salary:             input.Salary,
		Status:             enums.EmployeeStatusActive,
		HireDate:           hireDate,
		Manager:            trimmedPtr(input.Manager),
		ManagerID:          trimmedPtr(input.ManagerID),
		Skills:             input.Skills,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, createError(err)
	}
	if err := s.refs.AppendRef(ctx, p.TenantID, enums.OrganizationRefEmployee, employee.ID); err != nil {
		s.logg.Error(ctx, "append employee reference", err)
	}
	return &CreatedEmployee{Employee: FromModel(employee), TempPassword: temp}, nil
}

func (s *service) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*EmployeeDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	employee, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(employee)
	return &dto, nil
}

func (s *service) List(ctx context.Context, p principal.Principal) ([]EmployeeDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list employees")
	}
	out := make([]EmployeeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*EmployeeDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers can edit employees")
	}
	current, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err)
	}
	if current.Role == enums.ActorRoleAdmin && !p.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can edit admins")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if err := s.ensureEmailFree(ctx, s.repo, email, id); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if input.Role != nil {
		role, err := enums.ParseActorRole(*input.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		if role == enums.ActorRoleAdmin && !p.IsAdmin() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can grant the admin role")
		}
		updates["role"] = role
	}
	if input.Status != nil {
		status, err := enums.ParseEmployeeStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		updates["status"] = status
	}
	if input.Department != nil {
		updates["department"] = trimmedPtr(input.Department)
	}
	if input.Phone != nil {
		updates["phone"] = trimmedPtr(input.Phone)
	}
	if input.Location != nil {
		updates["location"] = trimmedPtr(input.Location)
	}
	if input.Experience != nil {
		updates["experience"] = *input.Experience
	}
	if input.Salary != nil {
		updates["salary"] = *input.Salary
	}
	if input.Attendance != nil {
		updates["attendance"] = *input.Attendance
	}
	if input.Manager != nil {
		updates["manager"] = trimmedPtr(input.Manager)
	}
	if input.ManagerID != nil {
		updates["manager_id"] = trimmedPtr(input.ManagerID)
	}
	if input.Skills != nil {
		updates["skills"] = jsonColumn(*input.Skills)
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, p.TenantID, id, updates); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return nil, duplicateEmailError()
			}
			return nil, lookupError(err)
		}
	}
	return s.Get(ctx, p, id)
}

func (s *service) Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.CanManage() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins and managers can remove employees")
	}
	if id == p.ActorID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "employees cannot remove themselves")
	}
	current, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return lookupError(err)
	}
	if current.Role == enums.ActorRoleAdmin && !p.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can remove admins")
	}
	if err := s.repo.Delete(ctx, p.TenantID, id); err != nil {
		return lookupError(err)
	}
	if err := s.refs.RemoveRef(ctx, p.TenantID, enums.OrganizationRefEmployee, id); err != nil {
		s.logg.Error(ctx, "remove employee reference", err)
	}
	return nil
}

// ChangePassword verifies the current password and clears the must-change flag.
func (s *service) ChangePassword(ctx context.Context, p principal.Principal, input ChangePasswordInput) error {
	if err := p.Validate(); err != nil {
		return err
	}
	employee, err := s.repo.FindByID(ctx, p.TenantID, p.ActorID)
	if err != nil {
		return lookupError(err)
	}
	valid, err := security.VerifyPassword(input.CurrentPassword, employee.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	if err := security.CheckPasswordPolicy(input.NewPassword); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if input.NewPassword == input.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must differ from the current one")
	}
	hash, err := security.HashPassword(input.NewPassword, s.passwords)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.Update(ctx, p.TenantID, employee.ID, map[string]any{
		"password_hash":        hash,
		"must_change_password": false,
	}); err != nil {
		return lookupError(err)
	}
	return nil
}

// Authenticate resolves an employee by email and password. Every failure reads the same to callers.
func (s *service) Authenticate(ctx context.Context, email, password string) (*models.Employee, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	employee, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup employee")
	}
	valid, err := security.VerifyPassword(password, employee.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || employee.Status != enums.EmployeeStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if security.NeedsRehash(employee.PasswordHash, s.passwords) {
		s.rehash(ctx, employee, password)
	}
	return employee, nil
}

// CreateAdmin inserts the organization's first employee inside the caller's transaction.
func (s *service) CreateAdmin(ctx context.Context, tx *gorm.DB, org *models.Organization, input AdminInput) (*models.Employee, error) {
	if org == nil || org.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization is required")
	}
	if err := security.CheckPasswordPolicy(input.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	repo := s.repo.WithTx(tx)
	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, repo, email, uuid.Nil); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(input.Password, s.passwords)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = org.Name
	}
	now := s.now().UTC()
	admin := &models.Employee{
		OrgID:        org.ID,
		OrgName:      org.Name,
		HumanID:      fmt.Sprintf("ADMIN-%d", now.UnixMilli()),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.ActorRoleAdmin,
		Status:       enums.EmployeeStatusActive,
		HireDate:     now,
	}
	if err := repo.Create(ctx, admin); err != nil {
		return nil, createError(err)
	}
	// gorm skips zero values on insert, so the must-change default has to be cleared explicitly.
	if err := repo.Update(ctx, org.ID, admin.ID, map[string]any{"must_change_password": false}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin")
	}
	admin.MustChangePassword = false
	return admin, nil
}

func (s *service) rehash(ctx context.Context, employee *models.Employee, password string) {
	hash, err := security.HashPassword(password, s.passwords)
	if err != nil {
		s.logg.Error(ctx, "rehash password", err)
		return
	}
	if err := s.repo.Update(ctx, employee.OrgID, employee.ID, map[string]any{"password_hash": hash}); err != nil {
		s.logg.Error(ctx, "store rehashed password", err)
		return
	}
	employee.PasswordHash = hash
}

func (s *service) ensureEmailFree(ctx context.Context, repo Repository, email string, exclude uuid.UUID) error {
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	taken, err := repo.EmailTaken(ctx, email, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check employee email")
	}
	if taken {
		return duplicateEmailError()
	}
	return nil
}

func createError(err error) error {
	if pkgdb.IsUniqueViolation(err, emailUniqueIndex) || pkgdb.IsUniqueViolation(err, "employees.email") {
		return duplicateEmailError()
	}
	if pkgdb.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "employee id already issued")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create employee")
}

func duplicateEmailError() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "an employee with this email already exists").
		WithDetails(map[string]any{"field": "email"})
}

func lookupError(err error) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load employee")
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

func jsonColumn(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
