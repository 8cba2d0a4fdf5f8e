package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/nightshift/inventory-backend/pkg/logger"
)

// Command names accepted by Runner.Exec.
const (
	CmdUp     = "up"
	CmdDown   = "down"
	CmdRedo   = "redo"
	CmdStatus = "status"
)

// Runner applies goose migrations from one filesystem against one database.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// DialectFor maps the configured DB driver to a goose dialect.
func DialectFor(driver string) (goose.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		return goose.DialectPostgres, nil
	case "sqlite", "sqlite3":
		return goose.DialectSQLite3, nil
	}
	return "", fmt.Errorf("no goose dialect for driver %q", driver)
}

func NewRunner(db *sql.DB, driver string, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Exec runs one of up, down, redo or status.
func (r *Runner) Exec(ctx context.Context, command string) error {
	switch command {
	case CmdUp:
		return r.Up(ctx)
	case CmdDown:
		res, err := r.provider.Down(ctx)
		r.logResults(ctx, res)
		return wrap(command, err)
	case CmdRedo:
		res, err := r.provider.Down(ctx)
		r.logResults(ctx, res)
		if err != nil {
			return wrap(command, err)
		}
		res, err = r.provider.UpByOne(ctx)
		r.logResults(ctx, res)
		return wrap(command, err)
	case CmdStatus:
		return r.Status(ctx)
	}
	return fmt.Errorf("unknown migrate command %q", command)
}

func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.logResults(ctx, results...)
	if err == nil && len(results) == 0 {
		r.logg.Info(ctx, "schema already up to date")
	}
	return wrap(CmdUp, err)
}

// Status logs applied and pending migrations.
func (r *Runner) Status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return wrap(CmdStatus, err)
	}
	for _, st := range statuses {
		fields := map[string]any{"version": st.Source.Version, "state": string(st.State)}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration status")
	}
	return nil
}

// To migrates up or down until the database sits at version.
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		r.logg.Info(ctx, "already at target version")
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.logResults(ctx, results...)
	return wrap(fmt.Sprintf("migrate to %d", target), err)
}

func (r *Runner) logResults(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
			"empty":       res.Empty,
		}), "migration applied")
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
