package resolution_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/domain/resolution"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/database/gormstore"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/internal/testutil"
	pkgerrors "github.com/turtacn/patentdb/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()
	s := testutil.NewSQLiteStore(t)

	require.NoError(t, persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		for _, n := range []string{"7000001", "7000002", "7000003", "7000004"} {
			if err := tx.Merge(context.Background(), &schema.Patent{ID: n, Number: n}); err != nil {
				return err
			}
		}
		return nil
	}))
	return s
}

func seed(t *testing.T, s *gormstore.Store, recs ...any) {
	t.Helper()
	require.NoError(t, persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		for _, r := range recs {
			if err := tx.Merge(context.Background(), r); err != nil {
				return err
			}
		}
		return nil
	}))
}

func loadInventors(t *testing.T, s *gormstore.Store, ids ...string) []*schema.RawInventor {
	t.Helper()
	var out []*schema.RawInventor
	require.NoError(t, persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		return tx.FindIn(context.Background(), &out, "id", ids)
	}))
	require.Len(t, out, len(ids))
	return out
}

func inventor(id, patent, first, last string) *schema.RawInventor {
	return &schema.RawInventor{ID: id, PatentID: patent, NameFirst: first, NameLast: last}
}

type recordedMerge struct {
	kind             string
	members, retired int
	err              error
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedMerge
}

func (f *fakeRecorder) ObserveMerge(kind string, members, retired int, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedMerge{kind, members, retired, err})
}

type fakePublisher struct {
	events []resolution.MergeEvent
	err    error
}

func (f *fakePublisher) PublishMerge(_ context.Context, ev resolution.MergeEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type heldLocker struct{}

func (heldLocker) Lock(ctx context.Context, _ string) (func(), error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestMatch_UnlinkedRecords(t *testing.T) {
	s := newStore(t)
	seed(t, s,
		inventor("inv-b", "7000001", "John", "Smith"),
		inventor("inv-a", "7000002", "Jon", "Smith"),
		inventor("inv-c", "7000003", "John", "Smyth"),
	)

	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor, resolution.WithLogger(logging.NewNopLogger()))
	res, err := r.Match(context.Background(), loadInventors(t, s, "inv-b", "inv-a", "inv-c"), nil)
	require.NoError(t, err)

	assert.Equal(t, "inv-a", res.ID)
	assert.Equal(t, []string{"inv-a", "inv-b", "inv-c"}, res.Members)
	assert.Empty(t, res.Retired)
	assert.Equal(t, "John", res.Fields["name_first"])
	assert.Equal(t, "Smith", res.Fields["name_last"])
	assert.ElementsMatch(t, []string{"7000001", "7000002", "7000003"}, res.Plural.Keyed[schema.ManyPatents])

	var canon schema.Inventor
	require.NoError(t, s.DB().First(&canon, "id = ?", "inv-a").Error)
	assert.Equal(t, "Smith", canon.NameLast)
	assert.ElementsMatch(t, []string{"7000001", "7000002", "7000003"}, canon.Links.Keyed[schema.ManyPatents])

	for _, raw := range loadInventors(t, s, "inv-a", "inv-b", "inv-c") {
		assert.Equal(t, "inv-a", raw.CleanID(), raw.ID)
	}
}

func TestMatch_ExpandsAndRetiresPreviousCanonicals(t *testing.T) {
	s := newStore(t)
	seed(t, s,
		inventor("inv-a", "7000001", "Ann", "Lee"),
		inventor("inv-b", "7000002", "Ann", "Lee"),
		inventor("inv-c", "7000003", "Ann", "Li"),
		inventor("inv-d", "7000004", "Ann", "Lee"),
	)
	ctx := context.Background()
	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor, resolution.WithLogger(logging.NewNopLogger()))

	_, err := r.Match(ctx, loadInventors(t, s, "inv-b", "inv-c"), nil)
	require.NoError(t, err)
	_, err = r.Match(ctx, loadInventors(t, s, "inv-d"), nil)
	require.NoError(t, err)

	// inv-c pulls in inv-b through canonical inv-b; inv-d pulls in nothing new.
	res, err := r.Match(ctx, loadInventors(t, s, "inv-a", "inv-c", "inv-d"), nil)
	require.NoError(t, err)

	assert.Equal(t, "inv-a", res.ID)
	assert.Equal(t, []string{"inv-a", "inv-b", "inv-c", "inv-d"}, res.Members)
	assert.Equal(t, []string{"inv-b", "inv-d"}, res.Retired)
	assert.Equal(t, "Lee", res.Fields["name_last"])

	var ids []string
	require.NoError(t, s.DB().Model(&schema.Inventor{}).Order("id").Pluck("id", &ids).Error)
	assert.Equal(t, []string{"inv-a"}, ids)

	for _, raw := range loadInventors(t, s, "inv-a", "inv-b", "inv-c", "inv-d") {
		assert.Equal(t, "inv-a", raw.CleanID(), raw.ID)
	}
}

func TestMatch_RematchRebuildsInPlace(t *testing.T) {
	s := newStore(t)
	seed(t, s, inventor("inv-a", "7000001", "Ann", "Lee"), inventor("inv-b", "7000002", "Ann", "Lee"))
	ctx := context.Background()
	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor, resolution.WithLogger(logging.NewNopLogger()))

	_, err := r.Match(ctx, loadInventors(t, s, "inv-a", "inv-b"), nil)
	require.NoError(t, err)
	res, err := r.Match(ctx, loadInventors(t, s, "inv-b"), nil)
	require.NoError(t, err)

	assert.Equal(t, "inv-a", res.ID)
	assert.Equal(t, []string{"inv-a"}, res.Retired)
	assert.Equal(t, []string{"inv-a", "inv-b"}, res.Members)

	var n int64
	require.NoError(t, s.DB().Model(&schema.Inventor{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestMatch_Override(t *testing.T) {
	s := newStore(t)
	seed(t, s, inventor("inv-a", "7000001", "Ann", "Lee"), inventor("inv-b", "7000002", "Ann", "Lee"))

	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor, resolution.WithLogger(logging.NewNopLogger()))
	res, err := r.Match(context.Background(), loadInventors(t, s, "inv-a", "inv-b"),
		map[string]string{"name_last": "Leigh", "id": "canon-1"})
	require.NoError(t, err)

	assert.Equal(t, "canon-1", res.ID)
	assert.Equal(t, "Leigh", res.Fields["name_last"])

	var canon schema.Inventor
	require.NoError(t, s.DB().First(&canon, "id = ?", "canon-1").Error)
	assert.Equal(t, "Leigh", canon.NameLast)
	assert.Equal(t, "Ann", canon.NameFirst)
}

func TestMatch_EmptyInput(t *testing.T) {
	s := newStore(t)
	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor, resolution.WithLogger(logging.NewNopLogger()))

	_, err := r.Match(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidParam))
}

func TestMatch_IncompleteRollsBack(t *testing.T) {
	s := newStore(t)
	seed(t, s, inventor("inv-a", "7000001", "Ann", "Lee"))
	ctx := context.Background()
	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor, resolution.WithLogger(logging.NewNopLogger()))

	_, err := r.Match(ctx, loadInventors(t, s, "inv-a"), nil)
	require.NoError(t, err)

	seed(t, s, inventor("inv-0", "7000002", "Cher", ""))
	rec := &fakeRecorder{}
	r = resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor,
		resolution.WithLogger(logging.NewNopLogger()), resolution.WithRecorder(rec))

	// inv-0 alone has no surname, so the vote cannot produce a canonical.
	_, err = r.Match(ctx, loadInventors(t, s, "inv-0"), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeResolutionIncomplete))

	require.Len(t, rec.calls, 1)
	assert.Error(t, rec.calls[0].err)

	// The earlier canonical survives untouched.
	var canon schema.Inventor
	require.NoError(t, s.DB().First(&canon, "id = ?", "inv-a").Error)
	assert.Nil(t, loadInventors(t, s, "inv-0")[0].InventorID)
}

func TestMatch_PublishesAndRecords(t *testing.T) {
	s := newStore(t)
	seed(t, s, inventor("inv-a", "7000001", "Ann", "Lee"), inventor("inv-b", "7000002", "Ann", "Lee"))

	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor,
		resolution.WithLogger(logging.NewNopLogger()),
		resolution.WithPublisher(pub),
		resolution.WithRecorder(rec))

	_, err := r.Match(context.Background(), loadInventors(t, s, "inv-a", "inv-b"), nil)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, schema.KindInventor, pub.events[0].Kind)
	assert.Equal(t, "inv-a", pub.events[0].ID)
	assert.Equal(t, []string{"inv-a", "inv-b"}, pub.events[0].Members)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedMerge{kind: schema.KindInventor, members: 2}, rec.calls[0])
}

func TestMatch_PublishFailureIsNotAMergeFailure(t *testing.T) {
	s := newStore(t)
	seed(t, s, inventor("inv-a", "7000001", "Ann", "Lee"))

	log := testutil.NewMockLogger()
	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor,
		resolution.WithLogger(log),
		resolution.WithPublisher(&fakePublisher{err: errors.New("broker down")}))

	res, err := r.Match(context.Background(), loadInventors(t, s, "inv-a"), nil)
	require.NoError(t, err)
	assert.Equal(t, "inv-a", res.ID)
	assert.True(t, log.HasMessage("warn", "merge event not published"))
}

func TestMatch_LockTimeout(t *testing.T) {
	s := newStore(t)
	seed(t, s, inventor("inv-a", "7000001", "Ann", "Lee"))

	r := resolution.NewResolver[*schema.RawInventor](s, schema.KindInventor,
		resolution.WithLogger(logging.NewNopLogger()),
		resolution.WithLocker(heldLocker{}),
		resolution.WithLockTimeout(10*time.Millisecond))

	_, err := r.Match(context.Background(), loadInventors(t, s, "inv-a"), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMergeLocked))
}

func TestMatch_Locations(t *testing.T) {
	s := newStore(t)
	seed(t, s,
		&schema.RawLocation{ID: "austin|tx|us", City: "Austin", State: "TX", Country: "US"},
		&schema.RawLocation{ID: "austin||us", City: "Austin", Country: "US"},
	)

	var raws []*schema.RawLocation
	require.NoError(t, persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		return tx.FindIn(context.Background(), &raws, "id", []string{"austin|tx|us", "austin||us"})
	}))

	r := resolution.NewResolver[*schema.RawLocation](s, schema.KindLocation, resolution.WithLogger(logging.NewNopLogger()))
	res, err := r.Match(context.Background(), raws, nil)
	require.NoError(t, err)

	// '|' sorts after letters, so the fuller key is the smaller identity.
	assert.Equal(t, "austin|tx|us", res.ID)
	assert.Equal(t, "TX", res.Fields["state"])
	assert.ElementsMatch(t, []string{"Austin, TX, US", "Austin, US"}, res.Plural.List)

	var loc schema.Location
	require.NoError(t, s.DB().First(&loc, "id = ?", res.ID).Error)
	assert.Equal(t, "Austin", loc.City)
	assert.Len(t, loc.Aliases.List, 2)
}

//Personal.AI order the ending
