package resolution

import (
	"context"
	"sort"
	"time"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

// MergeEvent describes a committed merge.
type MergeEvent struct {
	Kind    string    `json:"kind"`
	ID      string    `json:"id"`
	Members []string  `json:"members"`
	Retired []string  `json:"retired,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher announces committed merges to downstream consumers.
type Publisher interface {
	PublishMerge(ctx context.Context, ev MergeEvent) error
}

// Recorder receives merge measurements.
type Recorder interface {
	ObserveMerge(kind string, members, retired int, elapsed time.Duration, err error)
}

// Result is the outcome of a successful Match.
type Result struct {
	Kind string `json:"kind"`
	// ID is the canonical identity.
	ID string `json:"id"`
	// Fields are the voted attribute values after overrides.
	Fields map[string]string `json:"fields"`
	// Members are the identities of every raw record now linked to ID,
	// sorted.
	Members []string `json:"members"`
	// Retired are the canonical identities deleted by this merge, sorted.
	// ID itself may appear when the canonical record was rebuilt in place.
	Retired []string `json:"retired,omitempty"`
	Plural  Plural   `json:"plural"`
}

// Option configures a Resolver.
type Option func(*options)

type options struct {
	locker      Locker
	publisher   Publisher
	recorder    Recorder
	logger      logging.Logger
	lockTimeout time.Duration
}

// WithLocker replaces the in-process merge lock.
func WithLocker(l Locker) Option { return func(o *options) { o.locker = l } }

// WithPublisher announces committed merges through p.
func WithPublisher(p Publisher) Option { return func(o *options) { o.publisher = p } }

// WithRecorder reports merge measurements to r.
func WithRecorder(r Recorder) Option { return func(o *options) { o.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithLockTimeout bounds the wait for the merge lock.  Zero waits as long
// as the caller's context allows.
func WithLockTimeout(d time.Duration) Option { return func(o *options) { o.lockTimeout = d } }

// Resolver merges raw records of one kind.
type Resolver[R Raw] struct {
	session persistence.Session
	kind    string
	opts    options
}

// NewResolver returns a Resolver for raw records of kind (used for locking,
// logging and events, e.g. "inventor").
func NewResolver[R Raw](session persistence.Session, kind string, opts ...Option) *Resolver[R] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = NewLocalLocker()
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	return &Resolver[R]{
		session: session,
		kind:    kind,
		opts:    o,
	}
}

// Kind returns the entity kind this resolver merges.
func (r *Resolver[R]) Kind() string { return r.kind }

// Match merges records, which are believed to denote one real-world entity,
// into a single canonical record.
//
// Records already linked to a canonical record pull that record's other raw
// members into the group, and the old canonical record is retired.  Each
// attribute is voted by majority, the canonical identity is the smallest
// member identity, and override entries replace voted values (an "id"
// entry replaces the identity).  Retirement, construction and relinking
// commit together or not at all.
func (r *Resolver[R]) Match(ctx context.Context, records []R, override map[string]string) (*Result, error) {
	if len(records) == 0 {
		return nil, errors.InvalidParam("no records to match").WithDetail("kind=" + r.kind)
	}
	start := time.Now()

	lockCtx := ctx
	if r.opts.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, r.opts.lockTimeout)
		defer cancel()
	}
	unlock, err := r.opts.locker.Lock(lockCtx, "merge:"+r.kind)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMergeLocked, "acquire merge lock").WithDetail("kind=" + r.kind)
	}
	defer unlock()

	var res *Result
	err = persistence.WithTransaction(ctx, r.session, func(tx persistence.Tx) error {
		var mergeErr error
		res, mergeErr = r.merge(ctx, tx, records, override)
		return mergeErr
	})

	if r.opts.recorder != nil {
		members, retired := 0, 0
		if res != nil {
			members, retired = len(res.Members), len(res.Retired)
		}
		r.opts.recorder.ObserveMerge(r.kind, members, retired, time.Since(start), err)
	}
	if err != nil {
		r.opts.logger.Error("merge failed",
			logging.String("kind", r.kind),
			logging.Int("records", len(records)),
			logging.Err(err))
		return nil, err
	}

	r.opts.logger.Info("entities merged",
		logging.String("kind", r.kind),
		logging.String("id", res.ID),
		logging.Int("members", len(res.Members)),
		logging.Strings("retired", res.Retired))

	if r.opts.publisher != nil {
		ev := MergeEvent{Kind: r.kind, ID: res.ID, Members: res.Members, Retired: res.Retired, At: time.Now().UTC()}
		if pubErr := r.opts.publisher.PublishMerge(ctx, ev); pubErr != nil {
			// The merge is committed; a lost event is not a failed merge.
			r.opts.logger.Warn("merge event not published",
				logging.String("kind", r.kind),
				logging.String("id", res.ID),
				logging.Err(pubErr))
		}
	}
	return res, nil
}

func (r *Resolver[R]) merge(ctx context.Context, tx persistence.Tx, records []R, override map[string]string) (*Result, error) {
	group, retired, err := r.expand(ctx, tx, records)
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]string, 0, len(group))
	for _, rec := range group {
		summaries = append(summaries, rec.Summarize())
	}
	fields := Consensus(summaries)
	id := MinIdentity(group)
	for k, v := range override {
		if k == "id" {
			id = v
			continue
		}
		fields[k] = v
	}

	first := records[0]
	for _, cid := range retired {
		if err := tx.Delete(ctx, first.CleanStub(cid)); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "retire canonical "+r.kind).WithDetail("id=" + cid)
		}
	}

	clean, err := first.Related(id, fields)
	if err != nil {
		return nil, err
	}
	many := clean.Many()
	for _, rec := range group {
		clean.Attach(rec)
		rec.Link(id)
		many.Union(rec.Single())
	}

	if err := tx.Merge(ctx, clean); err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "store canonical "+r.kind).WithDetail("id=" + id)
	}
	members := make([]string, 0, len(group))
	for _, rec := range group {
		if err := tx.Merge(ctx, rec); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "relink raw "+r.kind).WithDetail("id=" + rec.Identity())
		}
		members = append(members, rec.Identity())
	}
	sort.Strings(members)
	sort.Strings(retired)

	return &Result{
		Kind:    r.kind,
		ID:      id,
		Fields:  fields,
		Members: members,
		Retired: retired,
		Plural:  *many,
	}, nil
}

// expand returns records plus every raw record attached to a canonical
// record any of them links to, deduplicated by identity, and the distinct
// canonical identities found.
func (r *Resolver[R]) expand(ctx context.Context, tx persistence.Tx, records []R) ([]R, []string, error) {
	seen := make(map[string]struct{}, len(records))
	group := make([]R, 0, len(records))
	add := func(rec R) {
		if _, dup := seen[rec.Identity()]; dup {
			return
		}
		seen[rec.Identity()] = struct{}{}
		group = append(group, rec)
	}
	for _, rec := range records {
		add(rec)
	}

	var retired []string
	retiredSet := make(map[string]struct{})
	for _, rec := range records {
		cid := rec.CleanID()
		if cid == "" {
			continue
		}
		if _, done := retiredSet[cid]; done {
			continue
		}
		retiredSet[cid] = struct{}{}
		retired = append(retired, cid)

		var siblings []R
		if err := tx.FindAll(ctx, &siblings, rec.LinkColumn(), cid); err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeUnknown, "load members of canonical "+r.kind).WithDetail("id=" + cid)
		}
		for _, s := range siblings {
			add(s)
		}
	}
	return group, retired, nil
}

//Personal.AI order the ending
