package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGErrorFromBothDrivers(t *testing.T) {
	pgx := fmt.Errorf("insert item: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_items_org_name", TableName: "items"})
	info, ok := PGError(pgx)
	require.True(t, ok)
	assert.Equal(t, "23505", info.Code)
	assert.Equal(t, "uq_items_org_name", info.Constraint)

	legacy := fmt.Errorf("insert vendor: %w", &pq.Error{Code: "23514", Constraint: "chk_items_quantity"})
	info, ok = PGError(legacy)
	require.True(t, ok)
	assert.Equal(t, "23514", info.Code)
	assert.Equal(t, "chk_items_quantity", info.Constraint)

	_, ok = PGError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestDumpCarriesCodeChainAndPG(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505", ConstraintName: "uq_customers_org_email"}
	err := Wrap(CodeValidation, cause, "customer email already exists")

	d := Dump(err)
	assert.Equal(t, CodeValidation, d.Code)
	assert.Equal(t, "uq_customers_org_email", d.PGConstraint)
	require.Len(t, d.Chain, 2)
	assert.Contains(t, d.Chain[0], "*errors.Error")
}
