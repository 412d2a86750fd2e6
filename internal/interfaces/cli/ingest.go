package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/patentdb/internal/application/ingestion"
	"github.com/turtacn/patentdb/internal/config"
	"github.com/turtacn/patentdb/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/patentdb/pkg/errors"
)

const stdinName = "-"

type ingestOptions struct {
	staging      bool
	keepExisting bool
	decoders     int
	watchConfig  bool
}

func newIngestCmd() *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest [FILE...]",
		Short: "Load patent documents into the store",
		Long: "Reads one JSON patent document per line from each FILE, or from stdin when\n" +
			"no FILE or \"-\" is given, and stores each patent in its own transaction.\n" +
			"A patent already in the store is replaced unless --keep-existing is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.staging, "staging", false, "write citations and other references to the staging tables (overrides ingest.staging)")
	f.BoolVar(&opts.keepExisting, "keep-existing", false, "skip patents already stored (overrides ingest.keep_existing)")
	f.IntVar(&opts.decoders, "decoders", 0, "parallel JSON decoders (overrides ingest.decoders)")
	f.BoolVar(&opts.watchConfig, "watch-config", false, "apply log level changes from --config while running")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string, opts *ingestOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config.Ingest
	flags := cmd.Flags()
	if flags.Changed("staging") {
		cfg.Staging = opts.staging
	}
	if flags.Changed("keep-existing") {
		cfg.KeepExisting = opts.keepExisting
	}
	if flags.Changed("decoders") {
		if opts.decoders < 1 {
			return errors.InvalidParam("--decoders must be at least 1").WithDetail("decoders=" + strconv.Itoa(opts.decoders))
		}
		cfg.Decoders = opts.decoders
	}

	if opts.watchConfig && cliCtx.ConfigPath != "" {
		watchLogLevel(cliCtx)
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	ingOpts := append([]ingestion.IngesterOption{
		ingestion.WithAddOptions(ingestion.AddOptions{Override: !cfg.KeepExisting, Staging: cfg.Staging}),
		ingestion.WithDecoders(cfg.Decoders),
	}, rt.ingestOptions()...)
	ingester := ingestion.NewIngester(rt.store, ingestion.NewBuilder(cliCtx.Logger), cliCtx.Logger, ingOpts...)

	if len(args) == 0 {
		args = []string{stdinName}
	}
	result := &ingestResult{}
	for _, name := range args {
		report, err := ingestInput(cmd, ingester, name)
		if report != nil {
			result.add(name, report)
		}
		if err != nil {
			_ = PrintResult(cmd, result)
			return err
		}
	}

	if err := PrintResult(cmd, result); err != nil {
		return err
	}
	if result.Total.Failed > 0 {
		return errors.New(errors.ErrCodeDatabaseError, "some documents were not stored").
			WithDetail(strconv.Itoa(result.Total.Failed) + " failed")
	}
	return nil
}

func ingestInput(cmd *cobra.Command, ingester *ingestion.Ingester, name string) (*ingestion.Report, error) {
	var r io.Reader
	if name == stdinName {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "cannot open input").WithDetail("file=" + name)
		}
		defer f.Close()
		r = f
	}
	return ingester.IngestStream(cmd.Context(), r)
}

// watchLogLevel follows the config file and applies log.level changes to
// the running logger.
func watchLogLevel(cliCtx *CLIContext) {
	log := cliCtx.Logger
	config.Watch(cliCtx.ConfigPath, func(cfg *config.Config) {
		if logging.SetLevel(log, cfg.Log.Level) {
			log.Info("log level updated", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		log.Warn("config reload rejected", logging.Err(err))
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Result
// ─────────────────────────────────────────────────────────────────────────────

type inputReport struct {
	Input string `json:"input"`
	*ingestion.Report
}

type ingestResult struct {
	Inputs []inputReport    `json:"inputs"`
	Total  ingestion.Report `json:"total"`
}

func (r *ingestResult) add(name string, rep *ingestion.Report) {
	r.Inputs = append(r.Inputs, inputReport{Input: name, Report: rep})
	r.Total.Created += rep.Created
	r.Total.Replaced += rep.Replaced
	r.Total.Skipped += rep.Skipped
	r.Total.Rejected += rep.Rejected
	r.Total.Failed += rep.Failed
}

func (r *ingestResult) String() string {
	var sb strings.Builder
	t := r.Total
	fmt.Fprintf(&sb, "ingested %d documents: %d created, %d replaced, %d skipped, %d rejected, %d failed",
		t.Total(), t.Created, t.Replaced, t.Skipped, t.Rejected, t.Failed)
	for _, in := range r.Inputs {
		for _, f := range in.Failures {
			fmt.Fprintf(&sb, "\n%s:%d %s %s: %s", in.Input, f.Line, f.Outcome, f.Number, f.Error)
		}
	}
	return sb.String()
}

func (r *ingestResult) TableHeaders() []string {
	return []string{"INPUT", "CREATED", "REPLACED", "SKIPPED", "REJECTED", "FAILED"}
}

func (r *ingestResult) TableRows() [][]string {
	row := func(name string, rep *ingestion.Report) []string {
		return []string{name,
			strconv.Itoa(rep.Created), strconv.Itoa(rep.Replaced), strconv.Itoa(rep.Skipped),
			strconv.Itoa(rep.Rejected), strconv.Itoa(rep.Failed)}
	}
	rows := make([][]string, 0, len(r.Inputs)+1)
	for _, in := range r.Inputs {
		rows = append(rows, row(in.Input, in.Report))
	}
	return append(rows, row("TOTAL", &r.Total))
}

//Personal.AI order the ending
