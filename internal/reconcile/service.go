package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/customers"
	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/internal/orders"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	"github.com/nightshift/inventory-backend/internal/vendors"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

const defaultParallelism = 4

// Service rebuilds mirrored projections from their authoritative records.
type Service interface {
	RebuildCustomer(ctx context.Context, p principal.Principal, customerID uuid.UUID) error
	RebuildVendor(ctx context.Context, p principal.Principal, vendorID uuid.UUID) error
	RebuildOrganization(ctx context.Context, tenantID uuid.UUID) error
	RunTenant(ctx context.Context, tenantID uuid.UUID) (Report, error)
	RunAll(ctx context.Context) (Report, error)
}

// Report counts the projections rebuilt by a run.
type Report struct {
	Tenants   int `json:"tenants"`
	Customers int `json:"customers"`
	Vendors   int `json:"vendors"`
	Sequences int `json:"sequences"`
}

func (r *Report) add(other Report) {
	r.Tenants += other.Tenants
	r.Customers += other.Customers
	r.Vendors += other.Vendors
	r.Sequences += other.Sequences
}

type rebuildResult struct {
	kind enums.EntityType
	id   uuid.UUID
	err  error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the repositories read and rewritten by reconcile runs.
type ServiceParams struct {
	DB            txRunner
	Repo          Repository
	Organizations organizations.Repository
	Customers     customers.Repository
	Vendors       vendors.Repository
	Orders        orders.Repository
	Ledger        ledger.Repository
	Sequence      sequence.Generator
	Logger        *logger.Logger
	Parallelism   int
}

type service struct {
	db          txRunner
	repo        Repository
	orgs        organizations.Repository
	customers   customers.Repository
	vendors     vendors.Repository
	orders      orders.Repository
	ledger      ledger.Repository
	sequence    sequence.Generator
	logg        *logger.Logger
	parallelism int
}

// NewService validates the dependencies and builds a reconcile service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("reconcile repository required")
	case params.Organizations == nil:
		return nil, fmt.Errorf("organizations repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customers repository required")
	case params.Vendors == nil:
		return nil, fmt.Errorf("vendors repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger repository required")
	case params.Sequence == nil:
		return nil, fmt.Errorf("sequence generator required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	parallelism := params.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		orgs:        params.Organizations,
		customers:   params.Customers,
		vendors:     params.Vendors,
		orders:      params.Orders,
		ledger:      params.Ledger,
		sequence:    params.Sequence,
		logg:        params.Logger,
		parallelism: parallelism,
	}, nil
}

// RebuildCustomer replaces the customer's order summaries with one row per stored order.
func (s *service) RebuildCustomer(ctx context.Context, p principal.Principal, customerID uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	customer, err := s.customers.FindByID(ctx, p.TenantID, customerID)
	if err != nil {
		return lookupError(err, "customer not found")
	}
	placed, err := s.orders.ListByCustomer(ctx, p.TenantID, customer.HumanID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
	}
	summaries := make([]models.CustomerOrderSummary, 0, len(placed))
	for _, order := range placed {
		summaries = append(summaries, models.CustomerOrderSummary{
			CustomerID:   customer.ID,
			OrgID:        p.TenantID,
			OrderHumanID: order.HumanID,
			Status:       order.Status,
			OrderDate:    order.OrderDate.UTC(),
			TotalAmount:  order.TotalAmount,
		})
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.customers.WithTx(tx).ReplaceSummaries(ctx, customer.ID, summaries)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace customer order summaries")
	}
	return nil
}

// RebuildVendor recomputes restock rows and totals from the REPLENISHMENT entries naming the vendor.
// Entries keep their item snapshot, so restocks of deleted items survive the rebuild.
func (s *service) RebuildVendor(ctx context.Context, p principal.Principal, vendorID uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	vendor, err := s.vendors.FindByID(ctx, p.TenantID, vendorID)
	if err != nil {
		return lookupError(err, "vendor not found")
	}
	entries, err := s.ledger.ListReplenishments(ctx, p.TenantID, vendor.HumanID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor replenishments")
	}
	restocks := make([]models.VendorRestock, 0, len(entries))
	for _, entry := range entries {
		humanID, name, err := s.entryItem(ctx, p.TenantID, entry)
		if err != nil {
			return err
		}
		restocks = append(restocks, models.VendorRestock{
			VendorID:    vendor.ID,
			OrgID:       p.TenantID,
			ItemHumanID: humanID,
			ItemName:    name,
			Quantity:    entry.QuantityUpdated,
			Cost:        entry.Cost,
			CreatedAt:   entry.CreatedAt,
		})
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.vendors.WithTx(tx).ReplaceRestocks(ctx, vendor, restocks)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace vendor restocks")
	}
	return nil
}

// entryItem returns the item snapshot stored on the entry, falling back to the live item for
// entries written before snapshots existed. A missing item leaves the id as the reference.
func (s *service) entryItem(ctx context.Context, tenantID uuid.UUID, entry models.ItemUpdateHistory) (string, string, error) {
	if entry.ItemHumanID != "" {
		return entry.ItemHumanID, entry.ItemName, nil
	}
	item, err := s.ledger.FindItemByID(ctx, tenantID, entry.ItemID)
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return entry.ItemID.String(), entry.ItemName, nil
		}
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replenished item")
	}
	return item.HumanID, item.Name, nil
}

// RebuildOrganization rewrites every reference list from the tenant's tables.
func (s *service) RebuildOrganization(ctx context.Context, tenantID uuid.UUID) error {
	if _, err := s.orgs.FindByID(ctx, tenantID); err != nil {
		return lookupError(err, "organization not found")
	}
	for _, kind := range enums.OrganizationRefKinds() {
		ids, err := s.repo.RefIDs(ctx, tenantID, kind)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list "+string(kind)+" ids")
		}
		if err := s.orgs.ReplaceRefs(ctx, tenantID, kind, ids); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace "+string(kind)+" references")
		}
	}
	return nil
}

// RunTenant rebuilds every projection of one tenant. Individual failures are collected so one
// drifted record does not stop the rest of the run.
func (s *service) RunTenant(ctx context.Context, tenantID uuid.UUID) (Report, error) {
	ctx = s.logg.WithTenantID(ctx, tenantID.String())
	p := principal.Principal{TenantID: tenantID, Role: enums.ActorRoleAdmin, ActorName: "reconcile"}
	report := Report{Tenants: 1}

	tenantCustomers, err := s.customers.List(ctx, tenantID)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	tenantVendors, err := s.vendors.List(ctx, tenantID)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}

	results := make(chan rebuildResult, len(tenantCustomers)+len(tenantVendors))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.parallelism)
	for _, customer := range tenantCustomers {
		id := customer.ID
		group.Go(func() error {
			results <- rebuildResult{kind: enums.EntityTypeCustomer, id: id, err: s.RebuildCustomer(groupCtx, p, id)}
			return nil
		})
	}
	for _, vendor := range tenantVendors {
		id := vendor.ID
		group.Go(func() error {
			results <- rebuildResult{kind: enums.EntityTypeVendor, id: id, err: s.RebuildVendor(groupCtx, p, id)}
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	var errs error
	for result := range results {
		if result.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s %s: %w", result.kind, result.id, result.err))
			continue
		}
		switch result.kind {
		case enums.EntityTypeCustomer:
			report.Customers++
		case enums.EntityTypeVendor:
			report.Vendors++
		}
	}

	if err := s.RebuildOrganization(ctx, tenantID); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("organization: %w", err))
	}
	for _, entity := range enums.EntityTypes() {
		if _, err := s.sequence.Sync(ctx, tenantID, entity); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sequence %s: %w", entity, err))
			continue
		}
		report.Sequences++
	}

	if errs != nil {
		s.logg.Error(ctx, "tenant reconcile finished with failures", errs)
	} else {
		s.logg.Info(ctx, "tenant reconciled")
	}
	return report, errs
}

// RunAll reconciles every tenant in creation order.
func (s *service) RunAll(ctx context.Context) (Report, error) {
	tenantIDs, err := s.orgs.ListIDs(ctx)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenants")
	}
	var (
		total Report
		errs  error
	)
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			return total, multierr.Append(errs, err)
		}
		report, err := s.RunTenant(ctx, tenantID)
		total.add(report)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return total, errs
}

func lookupError(err error, message string) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
