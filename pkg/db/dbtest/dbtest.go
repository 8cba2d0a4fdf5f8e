// Package dbtest opens isolated in-memory SQLite databases migrated with the service models.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	"github.com/nightshift/inventory-backend/pkg/principal"
)

// New returns a fresh migrated database. A single pooled connection serializes
// concurrent test goroutines the way row locks would on Postgres.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:nightshift_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// NewClient wraps New in the db.Client used by services.
func NewClient(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := New(t)
	return db.NewFromDB(conn), conn
}

// SeedTenant inserts an organization and returns an admin principal scoped to it.
func SeedTenant(t testing.TB, conn *gorm.DB) principal.Principal {
	t.Helper()
	suffix := uuid.NewString()[:8]
	org := &models.Organization{
		Name:     "Tenant " + suffix,
		Email:    "owner-" + suffix + "@example.com",
		MobileNo: "555" + suffix,
	}
	if err := conn.Create(org).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return principal.Principal{
		TenantID:  org.ID,
		ActorID:   uuid.New(),
		Role:      enums.ActorRoleAdmin,
		ActorName: "Owner",
	}
}
