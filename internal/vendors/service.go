package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

// ErrNoVendorRef marks a restock that carries no vendor reference. Callers treat it as a skip.
var ErrNoVendorRef = errors.New("restock has no vendor reference")

// Service manages vendors and mirrors replenishments onto them.
type Service interface {
	Create(ctx context.Context, p principal.Principal, input CreateInput) (*VendorDTO, error)
	Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*VendorDTO, error)
	List(ctx context.Context, p principal.Principal) ([]VendorDTO, error)
	Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*VendorDTO, error)
	Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error
	Exists(ctx context.Context, p principal.Principal, humanID string) (*models.Vendor, error)
	RecordRestock(ctx context.Context, p principal.Principal, vendorHumanID, itemHumanID, itemName string, quantity int, cost decimal.Decimal) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires vendor dependencies.
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
}

// NewService builds a vendor service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("vendor repository required")
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
	}, nil
}

func (s *service) Create(ctx context.Context, p principal.Principal, input CreateInput) (*VendorDTO, error) {
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

	humanID, err := s.sequence.NextID(ctx, p.TenantID, enums.EntityTypeVendor)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = "active"
	}
	vendor := &models.Vendor{
		OrgID:          p.TenantID,
		HumanID:        humanID,
		Name:           name,
		Email:          email,
		Phone:          phone,
		GSTNo:          gst,
		Status:         status,
		Address:        trimmedPtr(input.Address),
		Specialities:   input.Specialities,
		TotalValue:     decimal.Zero,
		Rating:         input.Rating,
		OnTimeDelivery: input.OnTimeDelivery,
		ResponseTime:   input.ResponseTime,
	}
	if err := s.repo.Create(ctx, vendor); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "vendor already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	s.appendRef(ctx, p.TenantID, vendor.ID)

	dto := toDTO(vendor)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*VendorDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	vendor, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, map[string]any{"vendor_id": id.String()})
	}
	dto := toDTO(vendor)
	return &dto, nil
}

func (s *service) List(ctx context.Context, p principal.Principal) ([]VendorDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, p.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	out := make([]VendorDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*VendorDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, map[string]any{"vendor_id": id.String()})
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
	if input.Status != nil {
		updates["status"] = strings.TrimSpace(*input.Status)
	}
	if input.Address != nil {
		updates["address"] = trimmedPtr(input.Address)
	}
	if input.Specialities != nil {
		updates["specialities"] = jsonColumn(*input.Specialities)
	}
	if input.Rating != nil {
		updates["rating"] = jsonColumn(*input.Rating)
	}
	if input.OnTimeDelivery != nil {
		updates["on_time_delivery"] = jsonColumn(*input.OnTimeDelivery)
	}
	if input.ResponseTime != nil {
		updates["response_time"] = jsonColumn(*input.ResponseTime)
	}
	if err := s.ensureUnique(ctx, p.TenantID, id, email, phone, gst); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, p.TenantID, id, updates); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "vendor already exists")
			}
			return nil, lookupError(err, map[string]any{"vendor_id": id.String()})
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
		return lookupError(err, map[string]any{"vendor_id": id.String()})
	}
	if err := s.refs.RemoveRef(ctx, p.TenantID, enums.OrganizationRefVendor, id); err != nil {
		s.logg.Error(ctx, "remove vendor reference", err)
	}
	return nil
}

// Exists resolves a vendor by its human id; used to validate manual restocks before stock moves.
func (s *service) Exists(ctx context.Context, p principal.Principal, humanID string) (*models.Vendor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(humanID)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendor, err := s.repo.FindByHumanID(ctx, p.TenantID, ref)
	if err != nil {
		return nil, lookupError(err, map[string]any{"vendor_id": ref})
	}
	return vendor, nil
}

// RecordRestock appends the restock snapshot and bumps the rolling totals in one transaction.
func (s *service) RecordRestock(ctx context.Context, p principal.Principal, vendorHumanID, itemHumanID, itemName string, quantity int, cost decimal.Decimal) error {
	ref := strings.TrimSpace(vendorHumanID)
	if ref == "" {
		return ErrNoVendorRef
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.FindByHumanID(ctx, p.TenantID, ref)
		if err != nil {
			return lookupError(err, map[string]any{"vendor_id": ref})
		}
		if err := repo.AppendRestock(ctx, &models.VendorRestock{
			VendorID:    vendor.ID,
			OrgID:       p.TenantID,
			ItemHumanID: itemHumanID,
			ItemName:    itemName,
			Quantity:    quantity,
			Cost:        cost,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append vendor restock")
		}
		if err := repo.IncrementTotals(ctx, vendor.ID, 1, cost); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor totals")
		}
		return nil
	})
}

func (s *service) ensureUnique(ctx context.Context, tenantID, exclude uuid.UUID, email, phone string, gst *string) error {
	checks := []struct {
		field string
		value string
	}{
		{field: "email", value: email},
		{field: "phone", value: phone},
	}
	if gst != nil {
		checks = append(checks, struct {
			field string
			value string
		}{field: "gst_no", value: *gst})
	}
	for _, check := range checks {
		exists, err := s.repo.ExistsByField(ctx, tenantID, check.field, check.value, exclude)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor uniqueness")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "vendor already exists").
				WithDetails(map[string]any{"field": check.field})
		}
	}
	return nil
}

func (s *service) appendRef(ctx context.Context, tenantID, vendorID uuid.UUID) {
	if err := s.refs.AppendRef(ctx, tenantID, enums.OrganizationRefVendor, vendorID); err != nil {
		s.logg.Error(ctx, "append vendor reference", err)
	}
}

func lookupError(err error, details map[string]any) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found").WithDetails(details)
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load vendor")
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
