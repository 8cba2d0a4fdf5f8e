package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/nightshift/inventory-backend/internal/reconcile"
)

type fakeReconciler struct {
	report reconcile.Report
	err    error
	calls  int
}

func (f *fakeReconciler) RunAll(context.Context) (reconcile.Report, error) {
	f.calls++
	return f.report, f.err
}

func TestMirrorReconcileJobRunsAllTenants(t *testing.T) {
	reconciler := &fakeReconciler{report: reconcile.Report{Tenants: 2, Customers: 3}}
	job, err := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: quietLogger(), Reconciler: reconciler})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	if job.Name() != "mirror_reconcile" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if reconciler.calls != 1 {
		t.Fatalf("expected one reconcile pass, got %d", reconciler.calls)
	}
}

func TestMirrorReconcileJobSurfacesFailures(t *testing.T) {
	boom := errors.New("boom")
	job, err := NewMirrorReconcileJob(MirrorReconcileJobParams{Logger: quietLogger(), Reconciler: &fakeReconciler{err: boom}})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
}
