package gormstore

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/pkg/errors"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// primary key column shared by every table in the schema
const pkColumn = "id"

var _ persistence.Session = (*Store)(nil)

// Begin opens a transaction bound to ctx.
func (s *Store) Begin(ctx context.Context) (persistence.Tx, error) {
	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return nil, errors.Wrap(db.Error, errors.CodeDatabaseError, "begin transaction")
	}
	return &tx{db: db}, nil
}

// tx adapts a gorm transaction to persistence.Tx.
type tx struct {
	db *gorm.DB
}

func (t *tx) FindBy(ctx context.Context, dst any, field string, value any) (bool, error) {
	err := t.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: field}, Value: value}).
		Take(dst).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "find "+field)
	}
	return true, nil
}

func (t *tx) FindAll(ctx context.Context, dst any, field string, value any) error {
	err := t.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: field}, Value: value}).
		Order(pkColumn).
		Find(dst).Error
	return classify(err, "find all by "+field)
}

func (t *tx) FindIn(ctx context.Context, dst any, field string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	in := make([]any, len(values))
	for i, v := range values {
		in[i] = v
	}
	err := t.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: field}, Values: in}).
		Order(pkColumn).
		Find(dst).Error
	return classify(err, "find in "+field)
}

func (t *tx) Page(ctx context.Context, dst any, after string, limit int) error {
	err := t.db.WithContext(ctx).
		Where(clause.Gt{Column: clause.Column{Name: pkColumn}, Value: after}).
		Order(pkColumn).
		Limit(limit).
		Find(dst).Error
	return classify(err, "page")
}

func (t *tx) Merge(ctx context.Context, rec any) error {
	err := t.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
	return classify(err, "merge")
}

func (t *tx) MergeGraph(ctx context.Context, rec any) error {
	err := t.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
	return classify(err, "merge graph")
}

func (t *tx) Insert(ctx context.Context, rec any) error {
	err := t.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
	return classify(err, "insert")
}

func (t *tx) Delete(ctx context.Context, rec any) error {
	err := t.db.WithContext(ctx).Delete(rec).Error
	return classify(err, "delete")
}

func (t *tx) DeleteIn(ctx context.Context, model any, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := t.db.WithContext(ctx).Where(pkColumn+" IN ?", ids).Delete(model)
	if res.Error != nil {
		return 0, classify(res.Error, "delete in")
	}
	return res.RowsAffected, nil
}

func (t *tx) Commit() error {
	return t.db.Commit().Error
}

func (t *tx) Rollback() error {
	return t.db.Rollback().Error
}

// classify wraps a driver error.  Unique and primary key violations from
// either driver become CodeConflict; everything else is a query error.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return errors.Wrap(err, errors.CodeConflict, op+": duplicate key")
	}
	return errors.Wrap(err, errors.CodeDBQueryError, op+" failed")
}

func isDuplicate(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if stderrors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

//Personal.AI order the ending
