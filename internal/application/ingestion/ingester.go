package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/patentdb/internal/domain/persistence"
	"github.com/turtacn/patentdb/internal/domain/schema"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

// maxLineSize bounds one NDJSON document.  Full-text patents with long
// citation lists run to a few megabytes.
const maxLineSize = 32 << 20

// Recorder receives ingestion and export measurements.
type Recorder interface {
	ObserveIngest(outcome Outcome, elapsed time.Duration)
	ObserveExport(table string, rows int)
}

// Failure describes one document that was not stored.
type Failure struct {
	Line    int     `json:"line"`
	Number  string  `json:"number,omitempty"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error"`
}

// Report summarises an ingestion run.
type Report struct {
	Created  int       `json:"created"`
	Replaced int       `json:"replaced"`
	Skipped  int       `json:"skipped"`
	Rejected int       `json:"rejected"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Total is the number of documents seen.
func (r *Report) Total() int {
	return r.Created + r.Replaced + r.Skipped + r.Rejected + r.Failed
}

func (r *Report) count(o Outcome) {
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeReplaced:
		r.Replaced++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeRejected:
		r.Rejected++
	case OutcomeFailed:
		r.Failed++
	}
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithAddOptions sets the options passed to Builder.Add.
func WithAddOptions(o AddOptions) IngesterOption { return func(i *Ingester) { i.opts = o } }

// WithDecoders sets the number of parallel NDJSON decoders.
func WithDecoders(n int) IngesterOption {
	return func(i *Ingester) {
		if n > 0 {
			i.decoders = n
		}
	}
}

// WithRecorder reports per-document outcomes to r.
func WithRecorder(r Recorder) IngesterOption { return func(i *Ingester) { i.recorder = r } }

// Ingester adds documents one transaction at a time, so a failed document
// never takes its neighbours down with it.
type Ingester struct {
	session  persistence.Session
	builder  *Builder
	opts     AddOptions
	decoders int
	recorder Recorder
	logger   logging.Logger
}

// NewIngester creates an Ingester writing through session.
func NewIngester(session persistence.Session, builder *Builder, logger logging.Logger, opts ...IngesterOption) *Ingester {
	if logger == nil {
		logger = logging.Default()
	}
	i := &Ingester{
		session:  session,
		builder:  builder,
		opts:     DefaultAddOptions(),
		decoders: 1,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest adds sources in order, committing after each one.
func (i *Ingester) Ingest(ctx context.Context, sources []*schema.Source) (*Report, error) {
	report := &Report{}
	for n, src := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		i.apply(ctx, report, n+1, src)
	}
	i.logReport(report)
	return report, nil
}

type rawLine struct {
	seq  int
	line int
	data []byte
}

type decodedLine struct {
	seq  int
	line int
	src  *schema.Source
	err  error
}

// IngestStream reads one JSON-encoded schema.Source per line from r.  Lines
// are decoded in parallel and written strictly in input order.  Blank lines
// are ignored; a line that does not decode is counted as rejected.
func (i *Ingester) IngestStream(ctx context.Context, r io.Reader) (*Report, error) {
	g, gctx := errgroup.WithContext(ctx)
	lines := make(chan rawLine, i.decoders*2)
	decoded := make(chan decodedLine, i.decoders*2)

	g.Go(func() error {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)
		seq, line := 0, 0
		for sc.Scan() {
			line++
			if len(bytes.TrimSpace(sc.Bytes())) == 0 {
				continue
			}
			data := make([]byte, len(sc.Bytes()))
			copy(data, sc.Bytes())
			select {
			case lines <- rawLine{seq: seq, line: line, data: data}:
				seq++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		if err := sc.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodePatentParseFailed, "read input").WithDetail("after line " + strconv.Itoa(line))
		}
		return nil
	})

	var wg sync.WaitGroup
	for d := 0; d < i.decoders; d++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for l := range lines {
				out := decodedLine{seq: l.seq, line: l.line, src: &schema.Source{}}
				if err := json.Unmarshal(l.data, out.src); err != nil {
					out.err = errors.Wrap(err, errors.ErrCodePatentParseFailed, "decode document")
				}
				select {
				case decoded <- out:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(decoded)
	}()

	report := &Report{}
	pending := make(map[int]decodedLine)
	next := 0
	for d := range decoded {
		pending[d.seq] = d
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if gctx.Err() != nil {
				continue
			}
			if cur.err != nil {
				i.fail(report, cur.line, "", OutcomeRejected, cur.err)
				if i.recorder != nil {
					i.recorder.ObserveIngest(OutcomeRejected, 0)
				}
				continue
			}
			i.apply(gctx, report, cur.line, cur.src)
		}
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	i.logReport(report)
	return report, nil
}

func (i *Ingester) apply(ctx context.Context, report *Report, line int, src *schema.Source) {
	start := time.Now()
	var outcome Outcome
	err := persistence.WithTransaction(ctx, i.session, func(tx persistence.Tx) error {
		var addErr error
		outcome, addErr = i.builder.Add(ctx, tx, src, i.opts)
		return addErr
	})
	if err != nil {
		outcome = OutcomeFailed
		if errors.IsInputError(errors.GetCode(err)) {
			outcome = OutcomeRejected
		}
		i.fail(report, line, src.Number(), outcome, err)
	} else {
		report.count(outcome)
	}
	if i.recorder != nil {
		i.recorder.ObserveIngest(outcome, time.Since(start))
	}
}

func (i *Ingester) fail(report *Report, line int, number string, outcome Outcome, err error) {
	report.count(outcome)
	report.Failures = append(report.Failures, Failure{Line: line, Number: number, Outcome: outcome, Error: err.Error()})
	i.logger.Warn("document not stored",
		logging.Int("line", line),
		logging.String("number", number),
		logging.String("outcome", outcome.String()),
		logging.Err(err))
}

func (i *Ingester) logReport(r *Report) {
	i.logger.Info("ingestion finished",
		logging.Int("total", r.Total()),
		logging.Int("created", r.Created),
		logging.Int("replaced", r.Replaced),
		logging.Int("skipped", r.Skipped),
		logging.Int("rejected", r.Rejected),
		logging.Int("failed", r.Failed))
}

//Personal.AI order the ending
