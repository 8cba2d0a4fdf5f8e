package organizations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/dbtest"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

func seedOrganization(t *testing.T, conn *gorm.DB, email, mobile string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: "Nightshift", Email: email, MobileNo: mobile}
	require.NoError(t, conn.Create(org).Error)
	return org
}

func newTestService(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.New(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo, conn
}

func TestAppendRefIsIdempotent(t *testing.T) {
	svc, _, conn := newTestService(t)
	org := seedOrganization(t, conn, "ops@nightshift.test", "5550001")
	ctx := context.Background()
	itemID := uuid.New()

	require.NoError(t, svc.AppendRef(ctx, org.ID, enums.OrganizationRefItem, itemID))
	require.NoError(t, svc.AppendRef(ctx, org.ID, enums.OrganizationRefItem, itemID))

	lists, err := svc.Refs(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{itemID}, lists[enums.OrganizationRefItem])
	assert.Empty(t, lists[enums.OrganizationRefOrder])
}

func TestRemoveRef(t *testing.T) {
	svc, _, conn := newTestService(t)
	org := seedOrganization(t, conn, "ops@nightshift.test", "5550001")
	ctx := context.Background()
	orderID := uuid.New()

	require.NoError(t, svc.AppendRef(ctx, org.ID, enums.OrganizationRefOrder, orderID))
	require.NoError(t, svc.RemoveRef(ctx, org.ID, enums.OrganizationRefOrder, orderID))

	lists, err := svc.Refs(ctx, org.ID)
	require.NoError(t, err)
	assert.Empty(t, lists[enums.OrganizationRefOrder])
}

func TestAppendRefRejectsUnknownKind(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.AppendRef(context.Background(), uuid.New(), enums.OrganizationRefKind("invoice"), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetIncludesReferenceLists(t *testing.T) {
	svc, _, conn := newTestService(t)
	org := seedOrganization(t, conn, "ops@nightshift.test", "5550001")
	ctx := context.Background()
	vendorID := uuid.New()
	require.NoError(t, svc.AppendRef(ctx, org.ID, enums.OrganizationRefVendor, vendorID))

	dto, err := svc.Get(ctx, principal.Principal{TenantID: org.ID, ActorID: uuid.New(), Role: enums.ActorRoleWorker})
	require.NoError(t, err)
	assert.Equal(t, "ops@nightshift.test", dto.Email)
	assert.Equal(t, []uuid.UUID{vendorID}, dto.Vendors)
	assert.NotNil(t, dto.Customers)
}

func TestUpdateRejectsDuplicateEmail(t *testing.T) {
	svc, _, conn := newTestService(t)
	seedOrganization(t, conn, "taken@nightshift.test", "5550001")
	org := seedOrganization(t, conn, "ops@nightshift.test", "5550002")
	admin := principal.Principal{TenantID: org.ID, ActorID: uuid.New(), Role: enums.ActorRoleAdmin}

	email := "TAKEN@nightshift.test"
	_, err := svc.Update(context.Background(), admin, UpdateInput{Email: &email})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	name := "Nightshift Supply"
	dto, err := svc.Update(context.Background(), admin, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Nightshift Supply", dto.Name)
}

func TestUpdateRequiresAdmin(t *testing.T) {
	svc, _, conn := newTestService(t)
	org := seedOrganization(t, conn, "ops@nightshift.test", "5550001")
	worker := principal.Principal{TenantID: org.ID, ActorID: uuid.New(), Role: enums.ActorRoleWorker}

	name := "Other"
	_, err := svc.Update(context.Background(), worker, UpdateInput{Name: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestReplaceRefsRewritesOneKind(t *testing.T) {
	svc, repo, conn := newTestService(t)
	org := seedOrganization(t, conn, "ops@nightshift.test", "5550001")
	ctx := context.Background()
	stale := uuid.New()
	kept := uuid.New()
	employee := uuid.New()
	require.NoError(t, svc.AppendRef(ctx, org.ID, enums.OrganizationRefCustomer, stale))
	require.NoError(t, svc.AppendRef(ctx, org.ID, enums.OrganizationRefEmployee, employee))

	require.NoError(t, repo.ReplaceRefs(ctx, org.ID, enums.OrganizationRefCustomer, []uuid.UUID{kept}))

	lists, err := svc.Refs(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{kept}, lists[enums.OrganizationRefCustomer])
	assert.Equal(t, []uuid.UUID{employee}, lists[enums.OrganizationRefEmployee])
}

func TestTenantIDs(t *testing.T) {
	svc, _, conn := newTestService(t)
	first := seedOrganization(t, conn, "a@nightshift.test", "5550001")
	second := seedOrganization(t, conn, "b@nightshift.test", "5550002")

	ids, err := svc.TenantIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids)
}
