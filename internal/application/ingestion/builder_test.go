package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/database/gormstore"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/internal/testutil"
	pkgerrors "github.com/turtacn/patentdb/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func sampleSource(number, title string) *schema.Source {
	return &schema.Source{
		Patent: schema.Fields{
			"number": number, "country": "US", "kind": "B2", "date": "20060214",
			"title": title, "num_claims": "20",
		},
		Application: schema.Fields{"number": "10/" + number, "country": "US", "date": "2003-05-01"},
		Assignees: []schema.Party{{
			Entity:   schema.Fields{"organization": "Acme Corp", "type": "2", "sequence": 0},
			Location: schema.Fields{"city": "Austin", "state": "TX", "country": "US"},
		}},
		Inventors: []schema.Party{
			{
				Entity:   schema.Fields{"name_first": "Ann", "name_last": "Lee", "sequence": 0},
				Location: schema.Fields{"city": "Austin", "state": "TX", "country": "US"},
			},
			{Entity: schema.Fields{"name_first": "Bo", "name_last": "Chen", "sequence": 1}},
		},
		Lawyers:     []schema.Fields{{"organization": "Fish & Richardson", "sequence": 0}},
		USRelations: []schema.Fields{{"doctype": "continuation", "reldocno": "09/123456", "sequence": 0}},
		USClassifications: []schema.USClassification{{
			USPC:      schema.Fields{"sequence": 0},
			MainClass: schema.Fields{"id": "257"},
			SubClass:  schema.Fields{"id": "257/48"},
		}},
		IPCRs:           []schema.Fields{{"section": "H", "class": "01", "subclass": "L", "sequence": 0}},
		Citations:       []schema.Fields{{"citation_id": "5000001", "sequence": 0}, {"citation_id": "5000002", "sequence": 1}},
		OtherReferences: []schema.Fields{{"text": "Smith et al., J. Appl. Phys.", "sequence": 0}},
	}
}

func add(t *testing.T, s *gormstore.Store, src *schema.Source, opts AddOptions) (Outcome, error) {
	t.Helper()
	b := NewBuilder(logging.NewNopLogger())
	var outcome Outcome
	err := persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		var err error
		outcome, err = b.Add(context.Background(), tx, src, opts)
		return err
	})
	return outcome, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestAdd_BuildsAggregate(t *testing.T) {
	s := testutil.NewSQLiteStore(t)

	outcome, err := add(t, s, sampleSource("7000001", "Widget"), DefaultAddOptions())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	var pat schema.Patent
	require.NoError(t, s.DB().Preload("Application").First(&pat, "id = ?", "7000001").Error)
	assert.Equal(t, "Widget", pat.Title)
	assert.Equal(t, 20, pat.NumClaims)
	require.NotNil(t, pat.Application)
	assert.Equal(t, "10/7000001", pat.Application.Number)

	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.RawAssignee{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.RawInventor{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.RawLawyer{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.USRelDoc{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.IPCR{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.Citation{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.OtherReference{}))
	assert.EqualValues(t, 0, testutil.CountRows(t, s, &schema.TempCitation{}))

	// One shared raw location for the assignee and the first inventor.
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.RawLocation{}))
	var asg schema.RawAssignee
	require.NoError(t, s.DB().First(&asg).Error)
	require.NotNil(t, asg.RawLocationID)
	assert.Equal(t, "austin|tx|us", *asg.RawLocationID)
	assert.Equal(t, "7000001", asg.PatentID)

	var uspc schema.USPC
	require.NoError(t, s.DB().First(&uspc).Error)
	require.NotNil(t, uspc.MainClassID)
	require.NotNil(t, uspc.SubClassID)
	assert.Equal(t, "257", *uspc.MainClassID)
	assert.Equal(t, "257/48", *uspc.SubClassID)
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.MainClass{}))
}

func TestAdd_ShortNumberRejectedWithoutWrites(t *testing.T) {
	s := testutil.NewSQLiteStore(t)

	_, err := add(t, s, sampleSource("1", "x"), DefaultAddOptions())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePatentNumberInvalid))

	for _, model := range []any{&schema.Patent{}, &schema.RawLocation{}, &schema.MainClass{}, &schema.Citation{}} {
		assert.EqualValues(t, 0, testutil.CountRows(t, s, model))
	}
}

func TestAdd_ShortNumberNeverDeletesExisting(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	require.NoError(t, persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		return tx.Merge(context.Background(), &schema.Patent{ID: "12", Number: "12"})
	}))

	_, err := add(t, s, &schema.Source{Patent: schema.Fields{"number": "12"}}, DefaultAddOptions())
	require.Error(t, err)
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.Patent{}))
}

func TestAdd_MissingSource(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	_, err := add(t, s, nil, DefaultAddOptions())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePatentNumberInvalid))
}

func TestAdd_ExistingSkippedWithoutOverride(t *testing.T) {
	s := testutil.NewSQLiteStore(t)

	_, err := add(t, s, sampleSource("7000001", "First"), DefaultAddOptions())
	require.NoError(t, err)

	outcome, err := add(t, s, sampleSource("7000001", "Second"), AddOptions{Override: false})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)

	var pat schema.Patent
	require.NoError(t, s.DB().First(&pat, "id = ?", "7000001").Error)
	assert.Equal(t, "First", pat.Title)
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.RawAssignee{}))
}

func TestAdd_ExistingReplacedWithOverride(t *testing.T) {
	s := testutil.NewSQLiteStore(t)

	_, err := add(t, s, sampleSource("7000001", "First"), DefaultAddOptions())
	require.NoError(t, err)

	src := sampleSource("7000001", "Second")
	src.Citations = src.Citations[:1]
	outcome, err := add(t, s, src, DefaultAddOptions())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, outcome)

	var pat schema.Patent
	require.NoError(t, s.DB().First(&pat, "id = ?", "7000001").Error)
	assert.Equal(t, "Second", pat.Title)

	// Exactly one version of every child remains.
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.Patent{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.Application{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.RawAssignee{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.RawInventor{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.Citation{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.RawLocation{}))
}

func TestAdd_StagingRoutesCitations(t *testing.T) {
	s := testutil.NewSQLiteStore(t)

	_, err := add(t, s, sampleSource("7000001", "Widget"), AddOptions{Override: true, Staging: true})
	require.NoError(t, err)

	assert.EqualValues(t, 0, testutil.CountRows(t, s, &schema.Citation{}))
	assert.EqualValues(t, 0, testutil.CountRows(t, s, &schema.OtherReference{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.TempCitation{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.TempOtherReference{}))

	var staged []schema.TempCitation
	require.NoError(t, s.DB().Find(&staged).Error)
	for _, c := range staged {
		assert.Equal(t, "7000001", c.PatentID)
	}
}

func TestAdd_ReplaceClearsPreviouslyStagedRows(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	opts := AddOptions{Override: true, Staging: true}

	_, err := add(t, s, sampleSource("7000001", "v1"), opts)
	require.NoError(t, err)
	outcome, err := add(t, s, sampleSource("7000001", "v2"), opts)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplaced, outcome)

	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.Patent{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.TempCitation{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, s, &schema.TempOtherReference{}))

	// Replacing without staging leaves nothing staged for the patent.
	_, err = add(t, s, sampleSource("7000001", "v3"), DefaultAddOptions())
	require.NoError(t, err)
	assert.EqualValues(t, 0, testutil.CountRows(t, s, &schema.TempCitation{}))
	assert.EqualValues(t, 0, testutil.CountRows(t, s, &schema.TempOtherReference{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.Citation{}))
}

func TestAdd_ReplaceKeepsOtherPatentsStagedRows(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	opts := AddOptions{Override: true, Staging: true}

	_, err := add(t, s, sampleSource("7000001", "A"), opts)
	require.NoError(t, err)
	_, err = add(t, s, sampleSource("7000002", "B"), opts)
	require.NoError(t, err)
	_, err = add(t, s, sampleSource("7000001", "A2"), opts)
	require.NoError(t, err)

	assert.EqualValues(t, 4, testutil.CountRows(t, s, &schema.TempCitation{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, s, &schema.TempOtherReference{}))
}

func TestAdd_StagingStampsPatentNumber(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	src := sampleSource("7000001", "Widget")
	src.Patent["id"] = "US7000001"

	_, err := add(t, s, src, AddOptions{Override: true, Staging: true})
	require.NoError(t, err)

	var pat schema.Patent
	require.NoError(t, s.DB().First(&pat).Error)
	assert.Equal(t, "US7000001", pat.ID)

	var cits []schema.TempCitation
	require.NoError(t, s.DB().Find(&cits).Error)
	require.Len(t, cits, 2)
	for _, c := range cits {
		assert.Equal(t, "7000001", c.PatentID)
	}
	var refs []schema.TempOtherReference
	require.NoError(t, s.DB().Find(&refs).Error)
	require.Len(t, refs, 1)
	assert.Equal(t, "7000001", refs[0].PatentID)
}

func TestAdd_KeepsResolvedLocationLink(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	require.NoError(t, persistence.WithTransaction(context.Background(), s, func(tx persistence.Tx) error {
		ctx := context.Background()
		if err := tx.Merge(ctx, &schema.Location{ID: "loc-1", City: "Austin", Country: "US"}); err != nil {
			return err
		}
		link := "loc-1"
		return tx.Merge(ctx, &schema.RawLocation{ID: "austin|tx|us", City: "Austin", State: "TX", Country: "US", LocationID: &link})
	}))

	_, err := add(t, s, sampleSource("7000001", "Widget"), DefaultAddOptions())
	require.NoError(t, err)

	var loc schema.RawLocation
	require.NoError(t, s.DB().First(&loc, "id = ?", "austin|tx|us").Error)
	require.NotNil(t, loc.LocationID)
	assert.Equal(t, "loc-1", *loc.LocationID)
}

func TestAdd_BadFieldIsParseFailure(t *testing.T) {
	s := testutil.NewSQLiteStore(t)
	src := sampleSource("7000001", "Widget")
	src.Patent["date"] = "Feb 14"

	_, err := add(t, s, src, DefaultAddOptions())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodePatentParseFailed))
	assert.EqualValues(t, 0, testutil.CountRows(t, s, &schema.Patent{}))
}

//Personal.AI order the ending
