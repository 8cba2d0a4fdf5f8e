package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nightshift/inventory-backend/pkg/logger"
)

// gormLogger routes GORM diagnostics through pkg/logger so SQL trouble carries
// the request and tenant fields. Only slow statements and real failures are logged.
type gormLogger struct {
	logg          *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &gormLogger{logg: logg, level: gormlogger.Warn, slowThreshold: slow}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *g
	next.level = level
	return &next
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.logg.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.logg.Error(ctx, "gorm.error", errors.New(fmt.Sprintf(msg, args...)))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		query, rows := fc()
		g.logg.Debug(g.logg.WithFields(ctx, map[string]any{
			"sql":         query,
			"rows":        rows,
			"duration_ms": elapsed.Milliseconds(),
			"db_error":    err.Error(),
		}), "sql.failed")
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		query, rows := fc()
		g.logg.Warn(g.logg.WithFields(ctx, map[string]any{
			"sql":         query,
			"rows":        rows,
			"duration_ms": elapsed.Milliseconds(),
		}), "sql.slow")
	}
}
