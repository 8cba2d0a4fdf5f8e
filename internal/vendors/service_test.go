package vendors

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	"github.com/nightshift/inventory-backend/pkg/db/dbtest"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

type fixture struct {
	svc  Service
	orgs organizations.Service
	conn *gorm.DB
	p    principal.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.NewClient(t)
	gen, err := sequence.NewService(sequence.ServiceParams{Repo: sequence.NewRepository(conn)})
	require.NoError(t, err)
	orgs, err := organizations.NewService(organizations.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		DB:       client,
		Sequence: gen,
		Refs:     orgs,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard}),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, orgs: orgs, conn: conn, p: dbtest.SeedTenant(t, conn)}
}

func (f *fixture) create(t *testing.T, email, phone string) *VendorDTO {
	t.Helper()
	vendor, err := f.svc.Create(context.Background(), f.p, CreateInput{Name: "Acme", Email: email, Phone: phone})
	require.NoError(t, err)
	return vendor
}

func TestCreateAssignsSequentialIDsAndReference(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, "acme@example.com", "5550101")
	second := f.create(t, "bolts@example.com", "5550102")

	assert.Equal(t, "VEND-001", first.HumanID)
	assert.Equal(t, "VEND-002", second.HumanID)
	assert.Equal(t, "active", first.Status)

	lists, err := f.orgs.Refs(context.Background(), f.p.TenantID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, lists[enums.OrganizationRefVendor])
}

func TestCreateRejectsDuplicateContact(t *testing.T) {
	f := newFixture(t)
	f.create(t, "acme@example.com", "5550101")

	_, err := f.svc.Create(context.Background(), f.p, CreateInput{Name: "Other", Email: "ACME@example.com", Phone: "5550999"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(context.Background(), f.p, CreateInput{Name: "Other", Email: "other@example.com", Phone: "5550101"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSameContactAllowedAcrossTenants(t *testing.T) {
	f := newFixture(t)
	f.create(t, "acme@example.com", "5550101")
	other := dbtest.SeedTenant(t, f.conn)

	vendor, err := f.svc.Create(context.Background(), other, CreateInput{Name: "Acme", Email: "acme@example.com", Phone: "5550101"})
	require.NoError(t, err)
	assert.Equal(t, "VEND-001", vendor.HumanID)
}

func TestRecordRestockUpdatesHistoryAndTotals(t *testing.T) {
	f := newFixture(t)
	vendor := f.create(t, "acme@example.com", "5550101")
	ctx := context.Background()

	require.NoError(t, f.svc.RecordRestock(ctx, f.p, vendor.HumanID, "ITEM-001", "Bolt", 10, decimal.RequireFromString("25.50")))
	require.NoError(t, f.svc.RecordRestock(ctx, f.p, vendor.HumanID, "ITEM-002", "Nut", 4, decimal.RequireFromString("4.50")))

	got, err := f.svc.Get(ctx, f.p, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRestocks)
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(30)), "total value %s", got.TotalValue)
	require.Len(t, got.Restocks, 2)
	assert.Equal(t, "Bolt", got.Restocks[0].ItemName)
	assert.Equal(t, 4, got.Restocks[1].Quantity)
}

func TestRecordRestockWithoutVendorIsSkipped(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RecordRestock(context.Background(), f.p, "  ", "ITEM-001", "Bolt", 1, decimal.Zero)
	assert.ErrorIs(t, err, ErrNoVendorRef)
}

func TestRecordRestockUnknownVendor(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RecordRestock(context.Background(), f.p, "VEND-404", "ITEM-001", "Bolt", 1, decimal.Zero)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var count int64
	require.NoError(t, f.conn.Model(&models.VendorRestock{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateOverwritesFieldsAndChecksUniqueness(t *testing.T) {
	f := newFixture(t)
	f.create(t, "taken@example.com", "5550100")
	vendor := f.create(t, "acme@example.com", "5550101")
	ctx := context.Background()

	taken := "taken@example.com"
	_, err := f.svc.Update(ctx, f.p, vendor.ID, UpdateInput{Email: &taken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	name := "Acme Fasteners"
	specialities := []string{"bolts", "nuts"}
	updated, err := f.svc.Update(ctx, f.p, vendor.ID, UpdateInput{Name: &name, Specialities: &specialities})
	require.NoError(t, err)
	assert.Equal(t, "Acme Fasteners", updated.Name)
	assert.Equal(t, []string{"bolts", "nuts"}, updated.Specialities)
	assert.Equal(t, "acme@example.com", updated.Email)
}

func TestDeleteRemovesVendorAndReference(t *testing.T) {
	f := newFixture(t)
	vendor := f.create(t, "acme@example.com", "5550101")
	ctx := context.Background()
	require.NoError(t, f.svc.RecordRestock(ctx, f.p, vendor.HumanID, "ITEM-001", "Bolt", 1, decimal.NewFromInt(2)))

	require.NoError(t, f.svc.Delete(ctx, f.p, vendor.ID))

	_, err := f.svc.Get(ctx, f.p, vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	lists, err := f.orgs.Refs(ctx, f.p.TenantID)
	require.NoError(t, err)
	assert.Empty(t, lists[enums.OrganizationRefVendor])

	err = f.svc.Delete(ctx, f.p, vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
