package customers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

// Service manages customers and mirrors live orders onto them.
type Service interface {
	Create(ctx context.Context, p principal.Principal, input CreateInput) (*CustomerDTO, error)
	Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context, p principal.Principal) ([]CustomerDTO, error)
	Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*CustomerDTO, error)
	Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error
	Resolve(ctx context.Context, p principal.Principal, humanID string) (*models.Customer, error)
	UpsertOrderSummary(ctx context.Context, p principal.Principal, customerHumanID, orderHumanID string, status enums.OrderStatus, orderDate time.Time, total decimal.Decimal) error
	RemoveOrderSummary(ctx context.Context, p principal.Principal, customerHumanID, orderHumanID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires customer dependencies.
type ServiceParams struct {
	Repo     Repository
	DB       txRunner
	Sequence sequence.Generator
	Refs     organizations.RefRecorder
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	db       txRunner
	sequence sequence.Generator
	refs     organizations.RefRecorder
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a customer service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sequence == nil {
		return nil, fmt.Errorf("sequence generator required")
	}
	if params.Refs == nil {
		return nil, fmt.Errorf("organization references required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		db:       params.DB,
		sequence: params.Sequence,
		refs:     params.Refs,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, p principal.Principal, input CreateInput) (*CustomerDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := strings.TrimSpace(input.Phone)
	if name == "" || email == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email and phone are required")
	}
	gst := trimmedPtr(input.GSTNo)
	if err := s.ensureUnique(ctx, p.TenantID, uuid.Nil, email, phone, gst); err != nil {
		return nil, err
	}

	humanID, err := s.sequence.NextID(ctx, p.TenantID, enums.EntityTypeCustomer)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = "active"
	}
	customer := &models.Customer{
		OrgID:               p.TenantID,
		HumanID:             humanID,
		Name:                name,
		Phone:               phone,
		Email:               email,
		Address:             trimmedPtr(input.Address),
		Status:              status,
		GSTNo:               gst,
		SatisfactionLevel:   input.SatisfactionLevel,
		PreferredCategories: input.PreferredCategories,
	}
	if input.DateOfJoining != nil {
		customer.DateOfJoining = input.DateOfJoining.UTC()
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "customer already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	if err := s.refs.AppendRef(ctx, p.TenantID, enums.OrganizationRefCustomer, customer.ID); err != nil {
		s.logg.Error(ctx, "append customer reference", err)
	}

	dto := toDTO(customer, s.now())
	return &dto, nil
}

func (s *service) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*CustomerDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, map[string]any{"customer_id": id.String()})
	}
	dto := toDTO(customer, s.now())
	return &dto, nil
}

func (s *service) List(ctx context.Context, p principal.Principal) ([]CustomerDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	now := s.now()
	out := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i], now))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*CustomerDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, map[string]any{"customer_id": id.String()})
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
	}
	email, phone, gst := current.Email, current.Phone, current.GSTNo
	if input.Email != nil {
		email = strings.ToLower(strings.TrimSpace(*input.Email))
		updates["email"] = email
	}
	if input.Phone != nil {
		phone = strings.TrimSpace(*input.Phone)
		updates["phone"] = phone
	}
	if input.GSTNo != nil {
		gst = trimmedPtr(input.GSTNo)
		updates["gst_no"] = gst
	}
	if input.Address != nil {
		updates["address"] = trimmedPtr(input.Address)
	}
	if input.Status != nil {
		updates["status"] = strings.TrimSpace(*input.Status)
	}
	if input.SatisfactionLevel != nil {
		updates["satisfaction_level"] = jsonColumn(*input.SatisfactionLevel)
	}
	if input.PreferredCategories != nil {
		updates["preferred_categories"] = jsonColumn(*input.PreferredCategories)
	}
	if err := s.ensureUnique(ctx, p.TenantID, id, email, phone, gst); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, p.TenantID, id, updates); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "customer already exists")
			}
			return nil, lookupError(err, map[string]any{"customer_id": id.String()})
		}
	}
	return s.Get(ctx, p, id)
}

func (s *service) Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, p.TenantID, id)
	})
	if err != nil {
		return lookupError(err, map[string]any{"customer_id": id.String()})
	}
	if err := s.refs.RemoveRef(ctx, p.TenantID, enums.OrganizationRefCustomer, id); err != nil {
		s.logg.Error(ctx, "remove customer reference", err)
	}
	return nil
}

// Resolve returns the customer with the given human id.
func (s *service) Resolve(ctx context.Context, p principal.Principal, humanID string) (*models.Customer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(humanID)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindByHumanID(ctx, p.TenantID, ref)
	if err != nil {
		return nil, lookupError(err, map[string]any{"customer_id": ref})
	}
	return customer, nil
}

// UpsertOrderSummary inserts or refreshes the order on the customer's mirror.
func (s *service) UpsertOrderSummary(ctx context.Context, p principal.Principal, customerHumanID, orderHumanID string, status enums.OrderStatus, orderDate time.Time, total decimal.Decimal) error {
	customer, err := s.Resolve(ctx, p, customerHumanID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(orderHumanID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if err := s.repo.UpsertSummary(ctx, &models.CustomerOrderSummary{
		CustomerID:   customer.ID,
		OrgID:        p.TenantID,
		OrderHumanID: orderHumanID,
		Status:       status,
		OrderDate:    orderDate.UTC(),
		TotalAmount:  total,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert customer order summary")
	}
	return nil
}

// RemoveOrderSummary drops the order from the customer's mirror. Missing summaries are ignored.
func (s *service) RemoveOrderSummary(ctx context.Context, p principal.Principal, customerHumanID, orderHumanID string) error {
	customer, err := s.Resolve(ctx, p, customerHumanID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSummary(ctx, customer.ID, orderHumanID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove customer order summary")
	}
	return nil
}

func (s *service) ensureUnique(ctx context.Context, tenantID, exclude uuid.UUID, email, phone string, gst *string) error {
	values := map[string]string{"email": email, "phone": phone}
	fields := []string{"email", "phone"}
	if gst != nil {
		values["gst_no"] = *gst
		fields = append(fields, "gst_no")
	}
	for _, field := range fields {
		exists, err := s.repo.ExistsByField(ctx, tenantID, field, values[field], exclude)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check customer uniqueness")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "customer already exists").
				WithDetails(map[string]any{"field": field})
		}
	}
	return nil
}

func lookupError(err error, details map[string]any) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").WithDetails(details)
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load customer")
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

// jsonColumn renders a list for map updates, which bypass the model serializer.
func jsonColumn(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return "[]"
	}
	return string(raw)
}
