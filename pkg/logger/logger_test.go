package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "entry=%s", buf.String())
	return entry
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithTenantID(ctx, "tenant-1")
	log.Error(ctx, "restock failed", errors.New("lock busy"))

	entry := decodeEntry(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "tenant-1", entry["tenant_id"])
	assert.Equal(t, "lock busy", entry["error"])
	assert.Equal(t, "test", entry["service"])
	assert.NotEmpty(t, entry["stack"])
}

func TestWithPrincipalTagsCaller(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithPrincipal(context.Background(), "org-1", "emp-1", "MANAGER")
	ctx = log.WithFields(ctx, map[string]any{"item_id": "item-9"})
	log.Info(ctx, "item restocked")

	entry := decodeEntry(t, buf)
	assert.Equal(t, "org-1", entry["tenant_id"])
	assert.Equal(t, "emp-1", entry["actor_id"])
	assert.Equal(t, "MANAGER", entry["actor_role"])
	assert.Equal(t, "item-9", entry["item_id"])
}

func TestScopedFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	parent := context.Background()
	_ = log.WithField(parent, "order_id", "ord-1")
	log.Info(parent, "plain")

	assert.NotContains(t, decodeEntry(t, buf), "order_id")
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "warny")
	assert.Contains(t, decodeEntry(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "warny")
	assert.NotContains(t, decodeEntry(t, buf), "stack")
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("info"), Output: buf})
	log.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, log.Enabled(zerolog.DebugLevel))
	assert.True(t, log.Enabled(zerolog.WarnLevel))
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Format: FormatConsole, Output: buf}).Info(context.Background(), "hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" debug "))
}
