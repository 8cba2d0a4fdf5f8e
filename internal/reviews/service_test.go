package reviews

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

	"github.com/nightshift/inventory-backend/pkg/db/dbtest"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
	pkgredis "github.com/nightshift/inventory-backend/pkg/redis"
)

type fixture struct {
	svc    Service
	conn   *gorm.DB
	tenant principal.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.NewClient(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		DB:     client,
		Locker: lock.NewMemoryLocker(lock.RetryPolicy{Attempts: 1}),
		Logger: logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard}),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, tenant: dbtest.SeedTenant(t, conn)}
}

func (f *fixture) seedEmployee(t *testing.T, humanID string, role enums.ActorRole, managerID string) *models.Employee {
	t.Helper()
	employee := &models.Employee{
		OrgID:        f.tenant.TenantID,
		HumanID:      humanID,
		Name:         "Employee " + humanID,
		Email:        humanID + "-" + uuid.NewString()[:8] + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		Status:       enums.EmployeeStatusActive,
	}
	if managerID != "" {
		employee.ManagerID = &managerID
	}
	require.NoError(t, f.conn.Create(employee).Error)
	return employee
}

func (f *fixture) as(employee *models.Employee) principal.Principal {
	return principal.Principal{TenantID: f.tenant.TenantID, ActorID: employee.ID, Role: employee.Role, ActorName: employee.Name}
}

func (f *fixture) reload(t *testing.T, employee *models.Employee) *models.Employee {
	t.Helper()
	var fresh models.Employee
	require.NoError(t, f.conn.First(&fresh, "id = ?", employee.ID).Error)
	return &fresh
}

func TestManagerReviewsReportAndMirrorsAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.seedEmployee(t, "EMP-001", enums.ActorRoleManager, "")
	admin := f.seedEmployee(t, "ADMIN-1", enums.ActorRoleAdmin, "")
	worker := f.seedEmployee(t, "EMP-002", enums.ActorRoleWorker, manager.HumanID)

	comments := "  steady shifts  "
	first, err := f.svc.Create(ctx, f.as(manager), CreateInput{EmployeeRef: worker.HumanID, Rating: 4, Comments: &comments})
	require.NoError(t, err)
	assert.Equal(t, "EMP-002", first.EmployeeRef)
	assert.Equal(t, "EMP-001", first.ReviewerRef)
	require.NotNil(t, first.Comments)
	assert.Equal(t, "steady shifts", *first.Comments)

	_, err = f.svc.Create(ctx, f.as(admin), CreateInput{EmployeeRef: worker.HumanID, Rating: 5})
	require.NoError(t, err)

	mirrored := f.reload(t, worker)
	assert.Equal(t, 2, mirrored.ReviewCount)
	assert.True(t, mirrored.AverageRating.Equal(decimal.RequireFromString("4.5")), "got %s", mirrored.AverageRating)

	received, err := f.svc.Received(ctx, f.as(worker), worker.HumanID)
	require.NoError(t, err)
	assert.Len(t, received, 2)
	given, err := f.svc.Given(ctx, f.as(worker), manager.HumanID)
	require.NoError(t, err)
	require.Len(t, given, 1)
	assert.Equal(t, first.ID, given[0].ID)
}

func TestOnlyAdminsAndTheManagerMayReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.seedEmployee(t, "EMP-001", enums.ActorRoleManager, "")
	otherManager := f.seedEmployee(t, "EMP-003", enums.ActorRoleManager, "")
	worker := f.seedEmployee(t, "EMP-002", enums.ActorRoleWorker, manager.HumanID)

	_, err := f.svc.Create(ctx, f.as(otherManager), CreateInput{EmployeeRef: worker.HumanID, Rating: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.Create(ctx, f.as(worker), CreateInput{EmployeeRef: manager.HumanID, Rating: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.Create(ctx, f.as(manager), CreateInput{EmployeeRef: manager.HumanID, Rating: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	// The seeded tenant principal has no employee row behind it.
	_, err = f.svc.Create(ctx, f.tenant, CreateInput{EmployeeRef: worker.HumanID, Rating: 5})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	var count int64
	require.NoError(t, f.conn.Model(&models.PerformanceReview{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateValidatesRatingAndEmployee(t *testing.T) {
	f := newFixture(t)
	admin := f.seedEmployee(t, "ADMIN-1", enums.ActorRoleAdmin, "")
	worker := f.seedEmployee(t, "EMP-002", enums.ActorRoleWorker, "")

	for _, rating := range []int{0, 6} {
		_, err := f.svc.Create(context.Background(), f.as(admin), CreateInput{EmployeeRef: worker.HumanID, Rating: rating})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "rating %d", rating)
	}
	_, err := f.svc.Create(context.Background(), f.as(admin), CreateInput{EmployeeRef: "EMP-404", Rating: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateAndDeleteRefreshAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	manager := f.seedEmployee(t, "EMP-001", enums.ActorRoleManager, "")
	outsider := f.seedEmployee(t, "EMP-003", enums.ActorRoleManager, "")
	worker := f.seedEmployee(t, "EMP-002", enums.ActorRoleWorker, manager.HumanID)

	review, err := f.svc.Create(ctx, f.as(manager), CreateInput{EmployeeRef: worker.HumanID, Rating: 2})
	require.NoError(t, err)

	five := 5
	_, err = f.svc.Update(ctx, f.as(outsider), review.ID, UpdateInput{Rating: &five})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	updated, err := f.svc.Update(ctx, f.as(manager), review.ID, UpdateInput{Rating: &five})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.True(t, f.reload(t, worker).AverageRating.Equal(decimal.NewFromInt(5)))

	assert.True(t, pkgerrors.IsCode(f.svc.Delete(ctx, f.as(outsider), review.ID), pkgerrors.CodeForbidden))
	require.NoError(t, f.svc.Delete(ctx, f.as(manager), review.ID))

	mirrored := f.reload(t, worker)
	assert.Zero(t, mirrored.ReviewCount)
	assert.True(t, mirrored.AverageRating.IsZero())
	_, err = f.svc.Get(ctx, f.as(manager), review.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReviewsAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.seedEmployee(t, "ADMIN-1", enums.ActorRoleAdmin, "")
	worker := f.seedEmployee(t, "EMP-002", enums.ActorRoleWorker, "")
	review, err := f.svc.Create(ctx, f.as(admin), CreateInput{EmployeeRef: worker.HumanID, Rating: 3})
	require.NoError(t, err)

	other := dbtest.SeedTenant(t, f.conn)
	_, err = f.svc.Get(ctx, other, review.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = f.svc.Received(ctx, other, worker.HumanID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	given, err := f.svc.Given(ctx, other, admin.HumanID)
	require.NoError(t, err)
	assert.Empty(t, given)
}

func TestHeldEmployeeLockIsRetryable(t *testing.T) {
	client, conn := dbtest.NewClient(t)
	locker := lock.NewMemoryLocker(lock.RetryPolicy{Attempts: 1})
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		DB:     client,
		Locker: locker,
		Logger: logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error"), Output: io.Discard}),
	})
	require.NoError(t, err)
	f := &fixture{svc: svc, conn: conn, tenant: dbtest.SeedTenant(t, conn)}
	admin := f.seedEmployee(t, "ADMIN-1", enums.ActorRoleAdmin, "")
	worker := f.seedEmployee(t, "EMP-002", enums.ActorRoleWorker, "")

	held, err := locker.Obtain(context.Background(), pkgredis.LockKey("review", f.tenant.TenantID.String(), worker.ID.String()), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = held.Release(context.Background()) })

	_, err = svc.Create(context.Background(), f.as(admin), CreateInput{EmployeeRef: worker.HumanID, Rating: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConcurrency), "got %v", err)
	assert.True(t, pkgerrors.IsRetryable(err))
}
