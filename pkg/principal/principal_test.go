package principal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
)

func TestNewParsesIdentifiers(t *testing.T) {
	tenant := uuid.New()
	actor := uuid.New()

	p, err := New(tenant.String(), actor.String(), "manager", "Ada")
	require.NoError(t, err)
	assert.Equal(t, tenant, p.TenantID)
	assert.Equal(t, actor, p.ActorID)
	assert.Equal(t, enums.ActorRoleManager, p.Role)
	assert.True(t, p.CanManage())
	assert.False(t, p.IsAdmin())
}

func TestNewRejectsBadTenant(t *testing.T) {
	_, err := New("nope", uuid.NewString(), "worker", "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestValidate(t *testing.T) {
	assert.Error(t, Principal{}.Validate())
	assert.NoError(t, Principal{TenantID: uuid.New(), Role: enums.ActorRoleWorker}.Validate())
}

func TestContextRoundTrip(t *testing.T) {
	p := Principal{TenantID: uuid.New(), Role: enums.ActorRoleAdmin}
	ctx := WithContext(context.Background(), p)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
