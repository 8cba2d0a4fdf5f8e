package items

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/pagination"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

const nameUniqueIndex = "idx_items_org_name"

// Service manages items. Every quantity change is routed through the stock ledger.
type Service interface {
	Create(ctx context.Context, p principal.Principal, input CreateInput) (*ItemDTO, error)
	Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*ItemDTO, error)
	List(ctx context.Context, p principal.Principal, params pagination.Params) (*ItemList, error)
	LowStock(ctx context.Context, p principal.Principal) ([]ItemDTO, error)
	Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*ItemDTO, error)
	Restock(ctx context.Context, p principal.Principal, id uuid.UUID, input RestockInput) (*ledger.Entry, error)
	History(ctx context.Context, p principal.Principal, id uuid.UUID) ([]ledger.Entry, error)
	Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error
}

type vendorResolver interface {
	Exists(ctx context.Context, p principal.Principal, humanID string) (*models.Vendor, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires item dependencies.
type ServiceParams struct {
	Repo     Repository
	DB       txRunner
	Ledger   ledger.Service
	Vendors  vendorResolver
	Sequence sequence.Generator
	Refs     organizations.RefRecorder
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	db       txRunner
	ledger   ledger.Service
	vendors  vendorResolver
	sequence sequence.Generator
	refs     organizations.RefRecorder
	logg     *logger.Logger
}

// NewService builds the item service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("item repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Vendors == nil:
		return nil, fmt.Errorf("vendor resolver required")
	case params.Sequence == nil:
		return nil, fmt.Errorf("sequence generator required")
	case params.Refs == nil:
		return nil, fmt.Errorf("organization references required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		db:       params.DB,
		ledger:   params.Ledger,
		vendors:  params.Vendors,
		sequence: params.Sequence,
		refs:     params.Refs,
		logg:     params.Logger,
	}, nil
}

// Create inserts the item at zero stock and books the opening quantity as a replenishment.
// Inputs and the vendor are checked before the insert; if the opening stock cannot be booked
// the row is removed again. Two creates racing on one name resolve through the unique index:
// the loser gets a ValidationError.
func (s *service) Create(ctx context.Context, p principal.Principal, input CreateInput) (*ItemDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must not be negative")
	}
	threshold := models.DefaultItemThreshold
	if input.Threshold != nil {
		if *input.Threshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
		}
		threshold = *input.Threshold
	}
	if exists, err := s.repo.ExistsByName(ctx, p.TenantID, name, uuid.Nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check item name")
	} else if exists {
		return nil, duplicateNameError(name)
	}
	vendorRef, vendorName, err := s.supplier(ctx, p, input.VendorRef)
	if err != nil {
		return nil, err
	}

	humanID, err := s.sequence.NextID(ctx, p.TenantID, enums.EntityTypeItem)
	if err != nil {
		return nil, err
	}
	item := &models.Item{
		OrgID:        p.TenantID,
		HumanID:      humanID,
		Name:         name,
		Quantity:     0,
		Threshold:    threshold,
		Image:        trimmedPtr(input.Image),
		LastUpdateAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if pkgdb.IsUniqueViolation(err, nameUniqueIndex) || pkgdb.IsUniqueViolation(err, "items.name") {
			return nil, duplicateNameError(name)
		}
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "item id already issued")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}

	if _, err := s.ledger.RecordInitialStock(ctx, p, ledger.ReplenishInput{
		ItemID:     item.ID,
		Quantity:   input.Quantity,
		Cost:       input.Cost,
		VendorRef:  vendorRef,
		VendorName: vendorName,
	}); err != nil {
		if delErr := s.repo.Delete(ctx, p.TenantID, item.ID); delErr != nil {
			s.logg.Error(s.logg.WithField(ctx, "item_id", item.ID.String()), "remove item after failed opening stock", delErr)
		}
		return nil, err
	}
	if err := s.refs.AppendRef(ctx, p.TenantID, enums.OrganizationRefItem, item.ID); err != nil {
		s.logg.Error(ctx, "append item reference", err)
	}
	return s.Get(ctx, p, item.ID)
}

func (s *service) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*ItemDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	dto := toDTO(item)
	return &dto, nil
}

func (s *service) List(ctx context.Context, p principal.Principal, params pagination.Params) (*ItemList, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, p.TenantID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	rows, next := pagination.Split(rows, params.Limit, func(m models.Item) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	list := &ItemList{Items: make([]ItemDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Items = append(list.Items, toDTO(&rows[i]))
	}
	return list, nil
}

// LowStock lists items whose quantity is at or below their threshold.
func (s *service) LowStock(ctx context.Context, p principal.Principal) ([]ItemDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListLowStock(ctx, p.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock items")
	}
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*ItemDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, p.TenantID, id); err != nil {
		return nil, lookupError(err, id)
	}
	var vendorRef, vendorName string
	if input.AddQuantity != nil {
		if *input.AddQuantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "add_quantity must be greater than zero")
		}
		if input.Cost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must not be negative")
		}
		var err error
		if vendorRef, vendorName, err = s.supplier(ctx, p, input.VendorRef); err != nil {
			return nil, err
		}
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		exists, err := s.repo.ExistsByName(ctx, p.TenantID, name, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check item name")
		}
		if exists {
			return nil, duplicateNameError(name)
		}
		updates["name"] = name
	}
	if input.Threshold != nil {
		if *input.Threshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
		}
		updates["threshold"] = *input.Threshold
	}
	if input.Image != nil {
		updates["image"] = trimmedPtr(input.Image)
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, p.TenantID, id, updates); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "item name already exists")
			}
			return nil, lookupError(err, id)
		}
	}

	if input.AddQuantity != nil {
		if _, err := s.ledger.Replenish(ctx, p, ledger.ReplenishInput{
			ItemID:     id,
			Quantity:   *input.AddQuantity,
			Cost:       input.Cost,
			VendorRef:  vendorRef,
			VendorName: vendorName,
		}); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, p, id)
}

// Restock validates the vendor before any stock moves, then replenishes.
func (s *service) Restock(ctx context.Context, p principal.Principal, id uuid.UUID, input RestockInput) (*ledger.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	vendor, err := s.vendors.Exists(ctx, p, input.VendorRef)
	if err != nil {
		return nil, err
	}
	return s.ledger.Replenish(ctx, p, ledger.ReplenishInput{
		ItemID:     id,
		Quantity:   input.Quantity,
		Cost:       input.Cost,
		VendorRef:  vendor.HumanID,
		VendorName: vendor.Name,
	})
}

func (s *service) History(ctx context.Context, p principal.Principal, id uuid.UUID) ([]ledger.Entry, error) {
	return s.ledger.History(ctx, p, id)
}

// Delete removes the item. Its history and order line snapshots are kept.
func (s *service) Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, p.TenantID, id)
	})
	if err != nil {
		return lookupError(err, id)
	}
	if err := s.refs.RemoveRef(ctx, p.TenantID, enums.OrganizationRefItem, id); err != nil {
		s.logg.Error(ctx, "remove item reference", err)
	}
	return nil
}

// supplier resolves an optional vendor reference. An unknown vendor is a NotFoundError.
func (s *service) supplier(ctx context.Context, p principal.Principal, ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", nil
	}
	vendor, err := s.vendors.Exists(ctx, p, ref)
	if err != nil {
		return "", "", err
	}
	return vendor.HumanID, vendor.Name, nil
}

func duplicateNameError(name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "item with this name already exists").
		WithDetails(map[string]any{"name": name})
}

func lookupError(err error, id uuid.UUID) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found").
			WithDetails(map[string]any{"item_id": id.String()})
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load item")
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
