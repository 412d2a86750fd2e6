// Package ingestion turns parsed patent documents into rows of the
// relational schema.
package ingestion

import (
	"context"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

// minNumberLen is the shortest patent number accepted.
const minNumberLen = 3

// Outcome reports what Add did with a document.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeReplaced Outcome = "replaced"
	OutcomeSkipped  Outcome = "skipped"
	// OutcomeRejected and OutcomeFailed are only reported by the Ingester.
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

func (o Outcome) String() string { return string(o) }

// AddOptions controls Add.
type AddOptions struct {
	// Override replaces a stored patent with the same number.  When false
	// the document is skipped instead.
	Override bool
	// Staging routes citations and other references to the staging tables.
	Staging bool
}

// DefaultAddOptions replaces existing patents and keeps citations with the
// aggregate.
func DefaultAddOptions() AddOptions {
	return AddOptions{Override: true}
}

// Builder builds the patent aggregate from a Source.
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{logger: logger}
}

// Add writes src into tx.  It never commits; the caller owns the
// transaction.  A number shorter than three characters is rejected before
// anything is read or written.
func (b *Builder) Add(ctx context.Context, tx persistence.Tx, src *schema.Source, opts AddOptions) (Outcome, error) {
	number := src.Number()
	if len(number) < minNumberLen {
		return "", errors.New(errors.CodePatentNumberInvalid, "patent number too short").WithDetail("number=" + number)
	}

	outcome := OutcomeCreated
	var existing schema.Patent
	found, err := tx.FindBy(ctx, &existing, "number", number)
	if err != nil {
		return "", err
	}
	if found {
		if !opts.Override {
			b.logger.Debug("patent exists, skipped", logging.String("number", number))
			return OutcomeSkipped, nil
		}
		if err := tx.Delete(ctx, &schema.Patent{ID: existing.ID}); err != nil {
			return "", errors.Wrap(err, errors.CodeUnknown, "remove previous version").WithDetail("number=" + number)
		}
		if err := b.unstage(ctx, tx, number); err != nil {
			return "", err
		}
		outcome = OutcomeReplaced
	}

	pat, err := b.build(ctx, tx, src, opts)
	if err != nil {
		return "", err
	}
	if err := tx.MergeGraph(ctx, pat); err != nil {
		return "", errors.Wrap(err, errors.CodeUnknown, "store patent").WithDetail("number=" + number)
	}

	b.logger.Debug("patent added",
		logging.String("number", number),
		logging.String("outcome", outcome.String()),
		logging.Bool("staging", opts.Staging))
	return outcome, nil
}

func (b *Builder) build(ctx context.Context, tx persistence.Tx, src *schema.Source, opts AddOptions) (*schema.Patent, error) {
	pat, err := schema.NewPatent(src.Patent)
	if err != nil {
		return nil, err
	}

	if len(src.Application) > 0 {
		app, err := schema.NewApplication(src.Application)
		if err != nil {
			return nil, err
		}
		pat.Application = app
	}

	for _, party := range src.Assignees {
		asg, err := schema.NewRawAssignee(party.Entity)
		if err != nil {
			return nil, err
		}
		if asg.RawLocationID, err = b.location(ctx, tx, party.Location); err != nil {
			return nil, err
		}
		pat.RawAssignees = append(pat.RawAssignees, *asg)
	}

	for _, party := range src.Inventors {
		inv, err := schema.NewRawInventor(party.Entity)
		if err != nil {
			return nil, err
		}
		if inv.RawLocationID, err = b.location(ctx, tx, party.Location); err != nil {
			return nil, err
		}
		pat.RawInventors = append(pat.RawInventors, *inv)
	}

	for _, f := range src.Lawyers {
		law, err := schema.NewRawLawyer(f)
		if err != nil {
			return nil, err
		}
		pat.RawLawyers = append(pat.RawLawyers, *law)
	}

	for _, f := range src.USRelations {
		rel, err := schema.NewUSRelDoc(f)
		if err != nil {
			return nil, err
		}
		pat.USRelDocs = append(pat.USRelDocs, *rel)
	}

	for _, c := range src.USClassifications {
		uspc, err := b.classification(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		pat.Classes = append(pat.Classes, *uspc)
	}

	for _, f := range src.IPCRs {
		ipc, err := schema.NewIPCR(f)
		if err != nil {
			return nil, err
		}
		pat.IPCRs = append(pat.IPCRs, *ipc)
	}

	if opts.Staging {
		if err := b.stage(ctx, tx, pat.Number, src); err != nil {
			return nil, err
		}
		return pat, nil
	}

	for _, f := range src.Citations {
		cit, err := schema.NewCitation(f)
		if err != nil {
			return nil, err
		}
		pat.Citations = append(pat.Citations, *cit)
	}
	for _, f := range src.OtherReferences {
		ref, err := schema.NewOtherReference(f)
		if err != nil {
			return nil, err
		}
		pat.OtherReferences = append(pat.OtherReferences, *ref)
	}
	return pat, nil
}

// location upserts the raw location named by f and returns its key, or nil
// when f is empty.  A location already linked to a canonical location keeps
// that link.
func (b *Builder) location(ctx context.Context, tx persistence.Tx, f schema.Fields) (*string, error) {
	if len(f) == 0 {
		return nil, nil
	}
	loc, err := schema.NewRawLocation(f)
	if err != nil {
		return nil, err
	}

	var stored schema.RawLocation
	found, err := tx.FindBy(ctx, &stored, "id", loc.ID)
	if err != nil {
		return nil, err
	}
	if found {
		loc.LocationID = stored.LocationID
	}
	if err := tx.Merge(ctx, loc); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "store raw location").WithDetail("id=" + loc.ID)
	}
	id := loc.ID
	return &id, nil
}

// classification upserts the main class and subclass of c and returns the
// USPC row linking them.
func (b *Builder) classification(ctx context.Context, tx persistence.Tx, c schema.USClassification) (*schema.USPC, error) {
	uspc, err := schema.NewUSPC(c.USPC)
	if err != nil {
		return nil, err
	}

	if len(c.MainClass) > 0 {
		mc, err := schema.NewMainClass(c.MainClass)
		if err != nil {
			return nil, err
		}
		if mc.ID != "" {
			if err := tx.Merge(ctx, mc); err != nil {
				return nil, errors.Wrap(err, errors.CodeUnknown, "store main class").WithDetail("id=" + mc.ID)
			}
			uspc.MainClassID = &mc.ID
		}
	}

	if len(c.SubClass) > 0 {
		sc, err := schema.NewSubClass(c.SubClass)
		if err != nil {
			return nil, err
		}
		if sc.ID != "" {
			if err := tx.Merge(ctx, sc); err != nil {
				return nil, errors.Wrap(err, errors.CodeUnknown, "store subclass").WithDetail("id=" + sc.ID)
			}
			uspc.SubClassID = &sc.ID
		}
	}
	return uspc, nil
}

// stage writes citations and other references to the staging tables with
// the patent number stamped on each row.
func (b *Builder) stage(ctx context.Context, tx persistence.Tx, number string, src *schema.Source) error {
	for _, f := range src.Citations {
		cit, err := schema.NewTempCitation(f)
		if err != nil {
			return err
		}
		cit.PatentID = number
		if err := tx.Merge(ctx, cit); err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "stage citation").WithDetail("patent=" + number)
		}
	}
	for _, f := range src.OtherReferences {
		ref, err := schema.NewTempOtherReference(f)
		if err != nil {
			return err
		}
		ref.PatentID = number
		if err := tx.Merge(ctx, ref); err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "stage other reference").WithDetail("patent=" + number)
		}
	}
	return nil
}

// unstage drops the rows a previous version of the patent left in the
// staging tables.  The cascade from the patent row does not reach them.
func (b *Builder) unstage(ctx context.Context, tx persistence.Tx, number string) error {
	var cits []schema.TempCitation
	if err := tx.FindAll(ctx, &cits, "patent_id", number); err != nil {
		return err
	}
	var refs []schema.TempOtherReference
	if err := tx.FindAll(ctx, &refs, "patent_id", number); err != nil {
		return err
	}
	if len(cits) > 0 {
		ids := make([]string, len(cits))
		for i := range cits {
			ids[i] = cits[i].ID
		}
		if _, err := tx.DeleteIn(ctx, &schema.TempCitation{}, ids); err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "remove staged citations").WithDetail("patent=" + number)
		}
	}
	if len(refs) > 0 {
		ids := make([]string, len(refs))
		for i := range refs {
			ids[i] = refs[i].ID
		}
		if _, err := tx.DeleteIn(ctx, &schema.TempOtherReference{}, ids); err != nil {
			return errors.Wrap(err, errors.CodeUnknown, "remove staged other references").WithDetail("patent=" + number)
		}
	}
	if n := len(cits) + len(refs); n > 0 {
		b.logger.Debug("previous staged rows removed", logging.String("number", number), logging.Int("rows", n))
	}
	return nil
}

//Personal.AI order the ending
