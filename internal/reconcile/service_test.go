package reconcile

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/customers"
	"github.com/nightshift/inventory-backend/internal/items"
	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/internal/orders"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	"github.com/nightshift/inventory-backend/internal/vendors"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/dbtest"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

type fixture struct {
	svc       Service
	conn      *gorm.DB
	customers customers.Repository
	vendors   vendors.Repository
	orgs      organizations.Repository
	sequence  sequence.Generator
	p         principal.Principal
	day       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.NewClient(t)
	gen, err := sequence.NewService(sequence.ServiceParams{Repo: sequence.NewRepository(conn)})
	require.NoError(t, err)
	f := &fixture{
		conn:      conn,
		customers: customers.NewRepository(conn),
		vendors:   vendors.NewRepository(conn),
		orgs:      organizations.NewRepository(conn),
		sequence:  gen,
		p:         dbtest.SeedTenant(t, conn),
		day:       time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		DB:            client,
		Repo:          NewRepository(conn),
		Organizations: f.orgs,
		Customers:     f.customers,
		Vendors:       f.vendors,
		Orders:        orders.NewRepository(conn),
		Ledger:        ledger.NewRepository(conn),
		Sequence:      gen,
		Logger:        logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard}),
		Parallelism:   2,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedCustomer(t *testing.T, humanID string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		OrgID:         f.p.TenantID,
		HumanID:       humanID,
		Name:          "Customer " + humanID,
		Email:         humanID + "@example.com",
		Phone:         "555" + humanID,
		DateOfJoining: f.day,
	}
	require.NoError(t, f.conn.Create(customer).Error)
	return customer
}

func (f *fixture) seedOrder(t *testing.T, humanID, customerRef string, total string, at time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrgID:       f.p.TenantID,
		HumanID:     humanID,
		CustomerRef: customerRef,
		TotalAmount: decimal.RequireFromString(total),
		Status:      enums.OrderStatusPending,
		OrderDate:   at,
	}
	require.NoError(t, f.conn.Create(order).Error)
	return order
}

func (f *fixture) seedVendor(t *testing.T, humanID string) *models.Vendor {
	t.Helper()
	vendor := &models.Vendor{
		OrgID:         f.p.TenantID,
		HumanID:       humanID,
		Name:          "Vendor " + humanID,
		Email:         humanID + "@vendors.example.com",
		Phone:         "777" + humanID,
		TotalRestocks: 9,
		TotalValue:    decimal.NewFromInt(999),
	}
	require.NoError(t, f.conn.Create(vendor).Error)
	return vendor
}

func (f *fixture) seedItem(t *testing.T, humanID, name string) *models.Item {
	t.Helper()
	item := &models.Item{
		OrgID:        f.p.TenantID,
		HumanID:      humanID,
		Name:         name,
		Quantity:     5,
		Threshold:    models.DefaultItemThreshold,
		LastUpdateAt: f.day,
	}
	require.NoError(t, f.conn.Create(item).Error)
	return item
}

func (f *fixture) seedReplenishment(t *testing.T, item *models.Item, vendorRef string, qty int, cost string) {
	t.Helper()
	ref := vendorRef
	require.NoError(t, f.conn.Create(&models.ItemUpdateHistory{
		ItemID:          item.ID,
		OrgID:           f.p.TenantID,
		Kind:            enums.LedgerEventTypeReplenishment,
		VendorRef:       &ref,
		QuantityUpdated: qty,
		QuantityAfter:   item.Quantity + qty,
		Cost:            decimal.RequireFromString(cost),
	}).Error)
}

func TestRebuildCustomerRestoresDriftedMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.seedCustomer(t, "CUST-001")
	f.seedOrder(t, "ORD-001", customer.HumanID, "40.00", f.day)
	f.seedOrder(t, "ORD-002", customer.HumanID, "12.50", f.day.Add(24*time.Hour))
	f.seedOrder(t, "ORD-003", "CUST-999", "7.00", f.day)

	require.NoError(t, f.customers.UpsertSummary(ctx, &models.CustomerOrderSummary{
		CustomerID:   customer.ID,
		OrgID:        f.p.TenantID,
		OrderHumanID: "ORD-404",
		Status:       enums.OrderStatusDelivered,
		OrderDate:    f.day,
		TotalAmount:  decimal.NewFromInt(1),
	}))

	require.NoError(t, f.svc.RebuildCustomer(ctx, f.p, customer.ID))

	summaries, err := f.customers.ListSummaries(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	ids := []string{summaries[0].OrderHumanID, summaries[1].OrderHumanID}
	assert.ElementsMatch(t, []string{"ORD-001", "ORD-002"}, ids)
	totals := decimal.Zero
	for _, summary := range summaries {
		totals = totals.Add(summary.TotalAmount)
	}
	assert.True(t, totals.Equal(decimal.RequireFromString("52.50")), "got %s", totals)
}

func TestRebuildCustomerUnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.RebuildCustomer(context.Background(), f.p, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRebuildVendorRecomputesTotalsFromReplenishments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := f.seedVendor(t, "VEND-001")
	other := f.seedVendor(t, "VEND-002")
	item := f.seedItem(t, "ITEM-001", "Widget")
	f.seedReplenishment(t, item, vendor.HumanID, 10, "25.00")
	f.seedReplenishment(t, item, vendor.HumanID, 4, "10.00")
	f.seedReplenishment(t, item, other.HumanID, 2, "3.00")

	require.NoError(t, f.svc.RebuildVendor(ctx, f.p, vendor.ID))

	reloaded, err := f.vendors.FindByID(ctx, f.p.TenantID, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.TotalRestocks)
	assert.True(t, reloaded.TotalValue.Equal(decimal.RequireFromString("35.00")), "got %s", reloaded.TotalValue)

	restocks, err := f.vendors.ListRestocks(ctx, vendor.ID)
	require.NoError(t, err)
	require.Len(t, restocks, 2)
	for _, restock := range restocks {
		assert.Equal(t, "ITEM-001", restock.ItemHumanID)
		assert.Equal(t, "Widget", restock.ItemName)
	}
}

func TestRebuildVendorKeepsRestocksOfDeletedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := pkgdb.NewFromDB(f.conn)
	stock, err := ledger.NewService(ledger.ServiceParams{
		Repo:   ledger.NewRepository(f.conn),
		DB:     client,
		Locker: lock.NewMemoryLocker(lock.RetryPolicy{Attempts: 1}),
		Logger: logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard}),
	})
	require.NoError(t, err)
	vendor := f.seedVendor(t, "VEND-001")
	item := f.seedItem(t, "ITEM-001", "Widget")
	_, err = stock.Replenish(ctx, f.p, ledger.ReplenishInput{
		ItemID:    item.ID,
		Quantity:  5,
		Cost:      decimal.NewFromInt(50),
		VendorRef: vendor.HumanID,
	})
	require.NoError(t, err)
	require.NoError(t, items.NewRepository(f.conn).Delete(ctx, f.p.TenantID, item.ID))

	require.NoError(t, f.svc.RebuildVendor(ctx, f.p, vendor.ID))

	reloaded, err := f.vendors.FindByID(ctx, f.p.TenantID, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalRestocks)
	assert.True(t, reloaded.TotalValue.Equal(decimal.NewFromInt(50)), "got %s", reloaded.TotalValue)
	restocks, err := f.vendors.ListRestocks(ctx, vendor.ID)
	require.NoError(t, err)
	require.Len(t, restocks, 1)
	assert.Equal(t, "ITEM-001", restocks[0].ItemHumanID)
	assert.Equal(t, "Widget", restocks[0].ItemName)
}

func TestRebuildOrganizationReplacesStaleReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "ITEM-001", "Widget")
	customer := f.seedCustomer(t, "CUST-001")
	require.NoError(t, f.orgs.AppendRef(ctx, &models.OrganizationRef{OrgID: f.p.TenantID, Kind: enums.OrganizationRefItem, RefID: uuid.New()}))

	require.NoError(t, f.svc.RebuildOrganization(ctx, f.p.TenantID))

	refs, err := f.orgs.ListRefs(ctx, f.p.TenantID)
	require.NoError(t, err)
	byKind := map[enums.OrganizationRefKind][]uuid.UUID{}
	for _, ref := range refs {
		byKind[ref.Kind] = append(byKind[ref.Kind], ref.RefID)
	}
	assert.Equal(t, []uuid.UUID{item.ID}, byKind[enums.OrganizationRefItem])
	assert.Equal(t, []uuid.UUID{customer.ID}, byKind[enums.OrganizationRefCustomer])
	assert.Empty(t, byKind[enums.OrganizationRefOrder])
}

func TestRunTenantRebuildsEverythingAndSyncsSequences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.seedCustomer(t, "CUST-001")
	f.seedCustomer(t, "CUST-002")
	f.seedVendor(t, "VEND-001")
	f.seedItem(t, "ITEM-007", "Widget")
	f.seedOrder(t, "ORD-001", customer.HumanID, "9.99", f.day)

	report, err := f.svc.RunTenant(ctx, f.p.TenantID)
	require.NoError(t, err)
	assert.Equal(t, Report{Tenants: 1, Customers: 2, Vendors: 1, Sequences: len(enums.EntityTypes())}, report)

	next, err := f.sequence.NextID(ctx, f.p.TenantID, enums.EntityTypeItem)
	require.NoError(t, err)
	assert.Equal(t, "ITEM-008", next)

	summaries, err := f.customers.ListSummaries(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ORD-001", summaries[0].OrderHumanID)
}

func TestRunAllVisitsEveryTenant(t *testing.T) {
	f := newFixture(t)
	dbtest.SeedTenant(t, f.conn)

	report, err := f.svc.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tenants)
}
