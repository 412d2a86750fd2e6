// Package disambiguation applies externally computed entity groupings:
// each group names raw records that denote one real-world entity and is
// merged through the resolution engine.
package disambiguation

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/domain/resolution"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

// Group is one disambiguation decision.
type Group struct {
	// Key is the disambiguation key the group was formed under.
	Key      string            `json:"key"`
	IDs      []string          `json:"ids"`
	Override map[string]string `json:"override,omitempty"`
}

// GroupResult is the outcome of one group.
type GroupResult struct {
	Key     string   `json:"key"`
	ID      string   `json:"id,omitempty"`
	Members []string `json:"members,omitempty"`
	Retired []string `json:"retired,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Summary reports a MatchGroups run.
type Summary struct {
	Kind    string        `json:"kind"`
	Merged  int           `json:"merged"`
	Failed  int           `json:"failed"`
	Results []GroupResult `json:"results"`
}

type matcher interface {
	match(ctx context.Context, ids []string, override map[string]string) (*resolution.Result, error)
}

// kindMatcher loads raw records of one kind by id and merges them.
type kindMatcher[R resolution.Raw] struct {
	session  persistence.Session
	resolver *resolution.Resolver[R]
}

func (k kindMatcher[R]) match(ctx context.Context, ids []string, override map[string]string) (*resolution.Result, error) {
	wanted := distinct(ids)
	var recs []R
	err := persistence.WithTransaction(ctx, k.session, func(tx persistence.Tx) error {
		return tx.FindIn(ctx, &recs, "id", wanted)
	})
	if err != nil {
		return nil, err
	}
	if len(recs) != len(wanted) {
		found := make(map[string]struct{}, len(recs))
		for _, r := range recs {
			found[r.Identity()] = struct{}{}
		}
		var missing []string
		for _, id := range wanted {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, errors.New(errors.CodeEntityNotFound, "raw "+k.resolver.Kind()+" not found").
			WithDetail("ids=" + strings.Join(missing, ","))
	}
	return k.resolver.Match(ctx, recs, override)
}

// Service merges groups of raw records for any entity kind.
type Service struct {
	matchers map[string]matcher
	logger   logging.Logger
}

// NewService builds one resolver per entity kind, all sharing opts.
func NewService(session persistence.Session, logger logging.Logger, opts ...resolution.Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	opts = append([]resolution.Option{resolution.WithLogger(logger)}, opts...)
	return &Service{
		matchers: map[string]matcher{
			schema.KindAssignee: kindMatcher[*schema.RawAssignee]{session, resolution.NewResolver[*schema.RawAssignee](session, schema.KindAssignee, opts...)},
			schema.KindInventor: kindMatcher[*schema.RawInventor]{session, resolution.NewResolver[*schema.RawInventor](session, schema.KindInventor, opts...)},
			schema.KindLawyer:   kindMatcher[*schema.RawLawyer]{session, resolution.NewResolver[*schema.RawLawyer](session, schema.KindLawyer, opts...)},
			schema.KindLocation: kindMatcher[*schema.RawLocation]{session, resolution.NewResolver[*schema.RawLocation](session, schema.KindLocation, opts...)},
		},
		logger: logger,
	}
}

// Kinds lists the entity kinds the service can merge.
func (s *Service) Kinds() []string {
	kinds := make([]string, 0, len(s.matchers))
	for k := range s.matchers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Match merges the raw records ids of kind.
func (s *Service) Match(ctx context.Context, kind string, ids []string, override map[string]string) (*resolution.Result, error) {
	m, ok := s.matchers[kind]
	if !ok {
		return nil, errors.New(errors.ErrCodeEntityKindUnknown, "unknown entity kind").
			WithDetail("kind=" + kind + " known=" + strings.Join(s.Kinds(), ","))
	}
	if len(ids) == 0 {
		return nil, errors.InvalidParam("no records to match").WithDetail("kind=" + kind)
	}
	return m.match(ctx, ids, override)
}

// MatchGroups merges every group in order, each in its own transaction.  A
// failed group is reported and does not stop the run; a cancelled context
// does.
func (s *Service) MatchGroups(ctx context.Context, kind string, groups []Group) (*Summary, error) {
	if _, ok := s.matchers[kind]; !ok {
		return nil, errors.New(errors.ErrCodeEntityKindUnknown, "unknown entity kind").
			WithDetail("kind=" + kind + " known=" + strings.Join(s.Kinds(), ","))
	}

	sum := &Summary{Kind: kind, Results: make([]GroupResult, 0, len(groups))}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := s.Match(ctx, kind, g.IDs, g.Override)
		if err != nil {
			sum.Failed++
			sum.Results = append(sum.Results, GroupResult{Key: g.Key, Error: err.Error()})
			s.logger.Warn("group not merged",
				logging.String("kind", kind),
				logging.String("key", g.Key),
				logging.Err(err))
			continue
		}
		sum.Merged++
		sum.Results = append(sum.Results, GroupResult{Key: g.Key, ID: res.ID, Members: res.Members, Retired: res.Retired})
	}

	s.logger.Info("groups matched",
		logging.String("kind", kind),
		logging.Int("merged", sum.Merged),
		logging.Int("failed", sum.Failed))
	return sum, nil
}

// DecodeGroups reads a stream of JSON-encoded groups (one object after
// another, typically one per line).
func DecodeGroups(r io.Reader) ([]Group, error) {
	dec := json.NewDecoder(r)
	var groups []Group
	for {
		var g Group
		err := dec.Decode(&g)
		if err == io.EOF {
			return groups, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "decode group").WithDetail("after group " + strconv.Itoa(len(groups)))
		}
		groups = append(groups, g)
	}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

//Personal.AI order the ending
