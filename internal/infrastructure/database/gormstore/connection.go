// Package gormstore implements persistence.Session on gorm, over PostgreSQL
// (pgx) or SQLite (mattn/go-sqlite3).
package gormstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/turtacn/patentdb/internal/config"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

// pingTimeout bounds the connectivity check in Open.
const pingTimeout = 5 * time.Second

// Store owns the connection pool and opens transactions on it.
type Store struct {
	db     *gorm.DB
	driver string
	logger logging.Logger
	once   sync.Once
}

// Open connects to the database described by cfg, applies pool settings,
// verifies connectivity and, when cfg.AutoMigrate is set, creates missing
// tables.
func Open(ctx context.Context, cfg config.DatabaseConfig, log logging.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	return open(ctx, dialector, cfg, log)
}

func open(ctx context.Context, dialector gorm.Dialector, cfg config.DatabaseConfig, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logging.NewGormLogger(log, cfg.SlowQuery),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to access connection pool")
	}
	configurePool(sqlDB, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	s := &Store{db: db, driver: cfg.Driver, logger: log}
	log.Info("Connected to database",
		logging.String("driver", cfg.Driver),
		logging.String("target", target(cfg)),
	)

	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// New wraps an already opened gorm handle (used by tests).
func New(db *gorm.DB, log logging.Logger) *Store {
	if log == nil {
		log = logging.Default()
	}
	return &Store{db: db, driver: db.Dialector.Name(), logger: log}
}

func configurePool(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.Driver == config.DriverSQLite {
		// One writer at a time; a second connection would see SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(config.DefaultDBMaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(config.DefaultDBMaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(config.DefaultDBConnLifetime)
	}

	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	} else {
		db.SetConnMaxIdleTime(config.DefaultDBConnIdleTime)
	}
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	case config.DriverPostgres:
		return postgres.Open(buildDSN(cfg)), nil
	default:
		return nil, errors.New(errors.CodeConfigInvalid, "unsupported database driver").WithDetail("driver=" + cfg.Driver)
	}
}

// sqliteDSN enables foreign keys (cascades depend on them), WAL and a busy
// timeout on every connection.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	return "file:" + path + "?" + q.Encode()
}

// buildDSN constructs the PostgreSQL connection string.
func buildDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.DBName,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}

	if cfg.StatementTimeout > 0 {
		q.Set("statement_timeout", fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds()))
	} else {
		q.Set("statement_timeout", "30000")
	}

	u.RawQuery = q.Encode()
	return u.String()
}

// target names the database without credentials, for logs.
func target(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite {
		return cfg.Path
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
}

// Migrate creates missing tables, columns, indexes and foreign keys for
// every record type.  It never drops anything.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create schema")
	}
	s.logger.Info("Database schema ready", logging.Int("tables", len(schema.Models())))
	return nil
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection status.
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}

	stats := sqlDB.Stats()
	if stats.OpenConnections > 0 {
		usage := float64(stats.InUse) / float64(stats.OpenConnections)
		if usage > 0.8 {
			s.logger.Warn("High database connection pool usage",
				logging.Int("in_use", stats.InUse),
				logging.Int("open", stats.OpenConnections),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

// Close closes the connection pool.  Only the first call has any effect.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		var sqlDB *sql.DB
		sqlDB, err = s.db.DB()
		if err != nil {
			return
		}
		err = sqlDB.Close()
		if err == nil {
			s.logger.Info("Closed database connection")
		} else {
			s.logger.Error("Failed to close database connection", logging.Err(err))
		}
	})
	return err
}

//Personal.AI order the ending
