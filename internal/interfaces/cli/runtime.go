package cli

import (
	"context"

	"github.com/turtacn/patentdb/internal/application/ingestion"
	"github.com/turtacn/patentdb/internal/config"
	"github.com/turtacn/patentdb/internal/domain/resolution"
	"github.com/turtacn/patentdb/internal/infrastructure/database/gormstore"
	"github.com/turtacn/patentdb/internal/infrastructure/database/redis"
	"github.com/turtacn/patentdb/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/patentdb/internal/infrastructure/storage/minio"
)

// newUploader opens the staging export target.  Tests replace it.
var newUploader = func(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (ingestion.Uploader, func() error, error) {
	c, err := minio.NewMinIOClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// runtime holds the dependencies a subcommand opened.  Close releases them
// in reverse order and writes the metrics textfile.
type runtime struct {
	cfg       *config.Config
	logger    logging.Logger
	store     *gormstore.Store
	collector prometheus.MetricsCollector
	metrics   *prometheus.AppMetrics
	closers   []func() error
}

func openRuntime(ctx context.Context, c *CLIContext) (*runtime, error) {
	rt := &runtime{cfg: c.Config, logger: c.Logger}

	store, err := gormstore.Open(ctx, c.Config.Database, c.Logger)
	if err != nil {
		return nil, err
	}
	rt.store = store
	rt.closers = append(rt.closers, store.Close)

	if c.Config.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace: c.Config.Metrics.Namespace,
			Subsystem: c.Config.Metrics.Subsystem,
		}, c.Logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.collector = collector
		rt.metrics = prometheus.NewAppMetrics(collector)
	}
	return rt, nil
}

// ingestOptions returns the Ingester options carrying the recorder.
func (rt *runtime) ingestOptions() []ingestion.IngesterOption {
	if rt.metrics == nil {
		return nil
	}
	return []ingestion.IngesterOption{ingestion.WithRecorder(rt.metrics)}
}

// resolutionOptions connects the merge lock and event producer the
// configuration enables.
func (rt *runtime) resolutionOptions(ctx context.Context) ([]resolution.Option, error) {
	opts := []resolution.Option{
		resolution.WithLogger(rt.logger),
		resolution.WithLockTimeout(rt.cfg.Resolution.LockTimeout),
	}
	if rt.metrics != nil {
		opts = append(opts, resolution.WithRecorder(rt.metrics))
	}

	if rt.cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, rt.cfg.Redis, rt.logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		opts = append(opts, resolution.WithLocker(redis.NewLocker(client, rt.cfg.Redis.LockTTL, rt.cfg.Redis.LockWait, rt.logger)))
	}

	if rt.cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(rt.cfg.Kafka, rt.logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, producer.Close)
		opts = append(opts, resolution.WithPublisher(producer))
	}
	return opts, nil
}

// exporter builds the staging Exporter over the configured object store.
func (rt *runtime) exporter(ctx context.Context, pageSize int) (*ingestion.Exporter, error) {
	uploader, closeFn, err := newUploader(ctx, rt.cfg.MinIO, rt.logger)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		rt.closers = append(rt.closers, closeFn)
	}
	opts := []ingestion.ExporterOption{ingestion.WithPageSize(pageSize)}
	if rt.metrics != nil {
		opts = append(opts, ingestion.WithExportRecorder(rt.metrics))
	}
	return ingestion.NewExporter(rt.store, uploader, rt.logger, opts...), nil
}

func (rt *runtime) Close() {
	if rt.collector != nil && rt.cfg.Metrics.Textfile != "" {
		if err := rt.collector.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
			rt.logger.Warn("metrics textfile not written", logging.Err(err))
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close failed", logging.Err(err))
		}
	}
	rt.closers = nil
}

//Personal.AI order the ending
