package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/patentdb/pkg/errors"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create or update the database tables",
		Long: "Creates every table, column and index the store needs.  Existing data is\n" +
			"kept; columns are added but never dropped.",
		Args: cobra.NoArgs,
		RunE: runSchema,
	}
}

func runSchema(cmd *cobra.Command, _ []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !cliCtx.Config.Database.AutoMigrate {
		if err := rt.store.Migrate(ctx); err != nil {
			return err
		}
	}
	tables, err := rt.store.DB().WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return errors.Wrap(err, errors.CodeDBQueryError, "list tables")
	}
	sort.Strings(tables)
	return PrintResult(cmd, schemaResult{Tables: tables})
}

type schemaResult struct {
	Tables []string `json:"tables"`
}

func (r schemaResult) String() string { return "tables: " + strings.Join(r.Tables, ", ") }

func (r schemaResult) TableHeaders() []string { return []string{"TABLE"} }

func (r schemaResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Tables))
	for _, t := range r.Tables {
		rows = append(rows, []string{t})
	}
	return rows
}

//Personal.AI order the ending
