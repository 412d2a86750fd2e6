// Package config provides configuration loading, defaults, and validation for
// patentdb.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBDriver       = DriverSQLite
	DefaultDBPath         = "patentdb.sqlite3"
	DefaultDBHost         = "localhost"
	DefaultDBPort         = 5432
	DefaultDBName         = "patentdb"
	DefaultDBMaxOpenConns = 25
	DefaultDBMaxIdleConns = 10
	DefaultDBConnLifetime = 30 * time.Minute
	DefaultDBConnIdleTime = 5 * time.Minute
	DefaultDBSlowQuery    = 200 * time.Millisecond
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisLockTTL   = 30 * time.Second
	DefaultRedisLockWait  = 100 * time.Millisecond
	MinRedisLockTTL       = 100 * time.Millisecond
	DefaultKafkaBroker    = "localhost:9092"
	DefaultKafkaTopic     = "patentdb.entity.merged"
	DefaultKafkaBatchSize = 100
	DefaultMinIOEndpoint  = "localhost:9000"
	DefaultMinIOBucket    = "patentdb-staging"
	DefaultIngestDecoders = 4
	DefaultExportPageSize = 5000
	DefaultLockTimeout    = 10 * time.Second
	DefaultMetricsNS      = "patentdb"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the default.  Fields
// that have already been set are left unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDBDriver
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDBPath
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnLifetime
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = DefaultDBConnIdleTime
	}
	if cfg.Database.SlowQuery == 0 {
		cfg.Database.SlowQuery = DefaultDBSlowQuery
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultRedisLockTTL
	}
	if cfg.Redis.LockWait == 0 {
		cfg.Redis.LockWait = DefaultRedisLockWait
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.RequiredAcks == 0 {
		cfg.Kafka.RequiredAcks = -1
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Prefix == "" {
		cfg.MinIO.Prefix = "staging/"
	}

	// ── Ingest ────────────────────────────────────────────────────────────────
	if cfg.Ingest.Decoders == 0 {
		cfg.Ingest.Decoders = DefaultIngestDecoders
	}
	if cfg.Ingest.ExportPageSize == 0 {
		cfg.Ingest.ExportPageSize = DefaultExportPageSize
	}

	// ── Resolution ────────────────────────────────────────────────────────────
	if cfg.Resolution.LockTimeout == 0 {
		cfg.Resolution.LockTimeout = DefaultLockTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNS
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

//Personal.AI order the ending
