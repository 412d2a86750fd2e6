package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

const ndjsonContentType = "application/x-ndjson"

// Uploader stores one object.  The MinIO client implements it.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// ExportResult lists what an export moved out of the staging tables.
type ExportResult struct {
	Citations       int      `json:"citations"`
	OtherReferences int      `json:"other_references"`
	Objects         []string `json:"objects"`
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithPageSize sets the number of rows per uploaded object.
func WithPageSize(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithExportRecorder reports exported row counts to r.
func WithExportRecorder(r Recorder) ExporterOption { return func(e *Exporter) { e.recorder = r } }

// Exporter drains the staging tables into object storage.
type Exporter struct {
	session  persistence.Session
	uploader Uploader
	pageSize int
	recorder Recorder
	logger   logging.Logger
	now      func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(session persistence.Session, uploader Uploader, logger logging.Logger, opts ...ExporterOption) *Exporter {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Exporter{
		session:  session,
		uploader: uploader,
		pageSize: 5000,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export uploads every staged row as NDJSON, one object per page, and
// deletes the uploaded rows.  Uploads and deletes share one transaction, so
// a failed upload leaves every row staged; objects already written stay in
// the bucket.  ErrCodeStagingEmpty is returned when nothing was staged.
func (e *Exporter) Export(ctx context.Context) (*ExportResult, error) {
	run := e.now().UTC().Format("20060102T150405Z")
	res := &ExportResult{}

	err := persistence.WithTransaction(ctx, e.session, func(tx persistence.Tx) error {
		n, keys, err := exportTable(ctx, e, tx, run, "citations", func(c *schema.TempCitation) string { return c.ID })
		if err != nil {
			return err
		}
		res.Citations = n
		res.Objects = append(res.Objects, keys...)

		n, keys, err = exportTable(ctx, e, tx, run, "otherreferences", func(r *schema.TempOtherReference) string { return r.ID })
		if err != nil {
			return err
		}
		res.OtherReferences = n
		res.Objects = append(res.Objects, keys...)

		if res.Citations+res.OtherReferences == 0 {
			return errors.New(errors.ErrCodeStagingEmpty, "nothing staged")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.recorder != nil {
		e.recorder.ObserveExport("citations", res.Citations)
		e.recorder.ObserveExport("otherreferences", res.OtherReferences)
	}
	e.logger.Info("staging exported",
		logging.Int("citations", res.Citations),
		logging.Int("other_references", res.OtherReferences),
		logging.Int("objects", len(res.Objects)))
	return res, nil
}

func exportTable[T any](ctx context.Context, e *Exporter, tx persistence.Tx, run, table string, id func(*T) string) (int, []string, error) {
	var (
		rows  int
		keys  []string
		after string
	)
	for page := 0; ; page++ {
		var batch []*T
		if err := tx.Page(ctx, &batch, after, e.pageSize); err != nil {
			return 0, nil, err
		}
		if len(batch) == 0 {
			break
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		ids := make([]string, 0, len(batch))
		for _, rec := range batch {
			if err := enc.Encode(rec); err != nil {
				return 0, nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode staged row")
			}
			ids = append(ids, id(rec))
		}

		key := path.Join(table, fmt.Sprintf("%s-%05d.ndjson", run, page))
		if err := e.uploader.Upload(ctx, key, buf.Bytes(), ndjsonContentType); err != nil {
			return 0, nil, errors.Wrap(err, errors.ErrCodeStagingExportFailed, "upload staged rows").WithDetail("key=" + key)
		}
		if _, err := tx.DeleteIn(ctx, new(T), ids); err != nil {
			return 0, nil, err
		}

		e.logger.Debug("staged page exported", logging.String("key", key), logging.Int("rows", len(batch)))
		rows += len(batch)
		keys = append(keys, key)
		after = ids[len(ids)-1]
		if len(batch) < e.pageSize {
			break
		}
	}
	return rows, keys, nil
}

//Personal.AI order the ending
