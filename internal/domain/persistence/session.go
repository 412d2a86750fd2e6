// Package persistence defines the transactional store contract shared by the
// ingestion builder and the resolution engine.  The gorm-backed
// implementation lives in internal/infrastructure/database/gormstore.
package persistence

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/turtacn/patentdb/pkg/errors"
)

// Session opens transactions.  It is passed explicitly to every component
// that touches the store; there is no process-wide session.
type Session interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one unit of work.  Records are gorm-mapped structs from
// internal/domain/schema (always passed by pointer); field names are column
// names.
type Tx interface {
	// FindBy loads the single record whose field equals value into dst.
	// found is false (and err nil) when no such record exists.
	FindBy(ctx context.Context, dst any, field string, value any) (found bool, err error)

	// FindAll loads every record whose field equals value into dst, which
	// must point to a slice.  Rows come back ordered by primary key.
	FindAll(ctx context.Context, dst any, field string, value any) error

	// FindIn loads every record whose field is one of values into dst.
	FindIn(ctx context.Context, dst any, field string, values []string) error

	// Page loads up to limit records with a primary key greater than after,
	// ordered by primary key.
	Page(ctx context.Context, dst any, after string, limit int) error

	// Merge upserts rec by primary key.  Associations are not touched.
	Merge(ctx context.Context, rec any) error

	// MergeGraph upserts rec and, recursively, every associated record
	// reachable from it.
	MergeGraph(ctx context.Context, rec any) error

	// Insert adds rec.  A duplicate primary key is a CodeConflict error.
	Insert(ctx context.Context, rec any) error

	// Delete removes rec by primary key.  Dependent rows follow the
	// schema's referential rules (cascade or set null).
	Delete(ctx context.Context, rec any) error

	// DeleteIn removes every row of model's table whose primary key is in
	// ids and reports how many went.
	DeleteIn(ctx context.Context, model any, ids []string) (int64, error)

	Commit() error
	Rollback() error
}

// Commit commits tx.  On failure the transaction is rolled back and a
// CodeDatabaseError AppError is returned, so callers can always tell a
// durable write from a lost one.  A rollback failure is kept as a second
// cause unless the driver had already finished the transaction.
func Commit(tx Tx) error {
	err := tx.Commit()
	if err == nil {
		return nil
	}
	if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
		err = stderrors.Join(err, rbErr)
	}
	return errors.Wrap(err, errors.CodeDatabaseError, "commit failed, transaction rolled back")
}

// WithTransaction runs fn inside a fresh transaction.  fn's error (or a
// panic) rolls back; otherwise the transaction is committed through Commit.
func WithTransaction(ctx context.Context, s Session, fn func(Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return Commit(tx)
}

//Personal.AI order the ending
