package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/logger"
)

type ledgerRow struct {
	ID     int
	ItemID string
	Delta  int
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver:       DriverSQLite,
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&ledgerRow{}))
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var count int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&count).Error)
	return count
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{ItemID: "widget", Delta: 5}).Error
	}))
	assert.Equal(t, int64(1), countRows(t, client))

	boom := errors.New("insufficient stock")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{ItemID: "widget", Delta: -9}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), countRows(t, client))
}

func TestWithTxRollsBackAndRepanics(t *testing.T) {
	client := newTestClient(t)

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&ledgerRow{ItemID: "widget", Delta: 1})
			panic("mid-transaction")
		})
	})
	assert.Zero(t, countRows(t, client))
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRejectsBadSettings(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: DriverSQLite}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), config.DBConfig{Driver: "mysql", DSN: "root@/inventory"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestGormLoggerReportsSlowQueries(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	gl := newGormLogger(logg, 10*time.Millisecond)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Zero(t, buf.Len(), "fast statements stay quiet")

	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT * FROM items", 3 }, nil)
	assert.Contains(t, buf.String(), "sql.slow")
	assert.Contains(t, buf.String(), "SELECT * FROM items")

	buf.Reset()
	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)
	assert.Zero(t, buf.Len(), "missing rows are not failures")

	buf.Reset()
	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 0 }, nil)
	assert.Zero(t, buf.Len())
}

func TestNewFromDBSharesConnection(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	client := NewFromDB(conn)
	assert.Same(t, conn, client.DB())
}
