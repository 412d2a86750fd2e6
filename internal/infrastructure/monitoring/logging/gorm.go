package logging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ─────────────────────────────────────────────────────────────────────────────
// gormLogger: routes gorm's SQL trace through Logger
// ─────────────────────────────────────────────────────────────────────────────

type gormLogger struct {
	log   Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLogger adapts l to gorm's logger.Interface.  Statements slower than
// slow are logged at WARN; every other statement at DEBUG.  Record-not-found
// results are not errors for the store and are never logged as such.
func NewGormLogger(l Logger, slow time.Duration) gormlogger.Interface {
	if l == nil {
		l = Default()
	}
	return &gormLogger{log: l.Named("gorm"), level: gormlogger.Info, slow: slow}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []Field{String("sql", sql), Int64("rows", rows), Duration("elapsed", elapsed)}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		g.log.Error("query failed", append(fields, Err(err))...)
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		g.log.Warn("slow query", fields...)
	case g.level >= gormlogger.Info:
		g.log.Debug("query", fields...)
	}
}

//Personal.AI order the ending
