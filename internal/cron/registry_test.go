package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry, err := NewRegistry(&stubJob{name: "mirror-reconcile"})
	require.NoError(t, err)
	require.NoError(t, registry.Register(&stubJob{name: "low-stock-report"}))

	assert.Equal(t, []string{"mirror-reconcile", "low-stock-report"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "Jobs must return a copy")
}

func TestRegistryRejectsInvalidJobs(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "mirror-reconcile"}, &stubJob{name: "mirror-reconcile"})
	assert.ErrorContains(t, err, "already registered")

	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&stubJob{name: "  "}))
	assert.Empty(t, registry.Names())
}
