package cron

import (
	"context"
	"fmt"

	"github.com/nightshift/inventory-backend/internal/reconcile"
	"github.com/nightshift/inventory-backend/pkg/logger"
)

const mirrorReconcileJobName = "mirror_reconcile"

type tenantReconciler interface {
	RunAll(ctx context.Context) (reconcile.Report, error)
}

// MirrorReconcileJobParams configures the mirror reconcile job.
type MirrorReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler tenantReconciler
}

// MirrorReconcileJob rebuilds customer, vendor and organization mirrors for every tenant.
type MirrorReconcileJob struct {
	logg       *logger.Logger
	reconciler tenantReconciler
}

// NewMirrorReconcileJob builds the job.
func NewMirrorReconcileJob(params MirrorReconcileJobParams) (*MirrorReconcileJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	return &MirrorReconcileJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

func (j *MirrorReconcileJob) Name() string { return mirrorReconcileJobName }

func (j *MirrorReconcileJob) Run(ctx context.Context) error {
	report, err := j.reconciler.RunAll(ctx)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"tenants":   report.Tenants,
		"customers": report.Customers,
		"vendors":   report.Vendors,
		"sequences": report.Sequences,
	})
	if err != nil {
		return fmt.Errorf("reconcile mirrors: %w", err)
	}
	j.logg.Info(ctx, "mirrors reconciled")
	return nil
}
