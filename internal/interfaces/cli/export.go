package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/patentdb/internal/application/ingestion"
	"github.com/turtacn/patentdb/pkg/errors"
)

type exportOptions struct {
	pageSize int
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export-staging",
		Short: "Move staged citations and other references to object storage",
		Long: "Uploads the rows in the staging citation and other-reference tables as\n" +
			"NDJSON objects to the configured MinIO bucket, then deletes them.  Nothing\n" +
			"is deleted unless every upload succeeds.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "rows per object (overrides ingest.export_page_size)")
	return cmd
}

func runExport(cmd *cobra.Command, opts *exportOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if !cliCtx.Config.MinIO.Enabled {
		return errors.New(errors.ErrCodeFeatureDisabled, "staging export needs minio.enabled")
	}
	pageSize := cliCtx.Config.Ingest.ExportPageSize
	if cmd.Flags().Changed("page-size") {
		if opts.pageSize < 1 {
			return errors.InvalidParam("--page-size must be at least 1").WithDetail("page-size=" + strconv.Itoa(opts.pageSize))
		}
		pageSize = opts.pageSize
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	exp, err := rt.exporter(ctx, pageSize)
	if err != nil {
		return err
	}
	res, err := exp.Export(ctx)
	if errors.IsCode(err, errors.ErrCodeStagingEmpty) {
		return PrintResult(cmd, &exportResult{})
	}
	if err != nil {
		return err
	}
	return PrintResult(cmd, (*exportResult)(res))
}

type exportResult ingestion.ExportResult

func (r *exportResult) String() string {
	if len(r.Objects) == 0 {
		return "nothing staged"
	}
	return fmt.Sprintf("exported %d citations and %d other references in %d objects:\n%s",
		r.Citations, r.OtherReferences, len(r.Objects), strings.Join(r.Objects, "\n"))
}

func (r *exportResult) TableHeaders() []string { return []string{"OBJECT"} }

func (r *exportResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Objects))
	for _, o := range r.Objects {
		rows = append(rows, []string{o})
	}
	return rows
}

//Personal.AI order the ending
