package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/patentdb/internal/application/disambiguation"
	"github.com/turtacn/patentdb/internal/domain/resolution"
	"github.com/turtacn/patentdb/pkg/errors"
)

type matchOptions struct {
	groupsFile string
	set        map[string]string
}

func newMatchCmd() *cobra.Command {
	opts := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match KIND [ID...]",
		Short: "Merge raw entities into one canonical record",
		Long: "Merges the raw records of KIND (assignee, inventor, lawyer or location)\n" +
			"named by ID into a single canonical record.  With --groups, reads one JSON\n" +
			"object {\"key\", \"ids\", \"override\"} per group from the file (\"-\" for stdin)\n" +
			"and merges each group separately.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.groupsFile, "groups", "", "file of groups to merge")
	f.StringToStringVar(&opts.set, "set", nil, "override a voted field, e.g. --set name_last=Smith (an \"id\" entry sets the canonical id)")
	return cmd
}

func runMatch(cmd *cobra.Command, args []string, opts *matchOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	kind, ids := args[0], args[1:]
	switch {
	case opts.groupsFile != "" && len(ids) > 0:
		return errors.InvalidParam("give either IDs or --groups, not both")
	case opts.groupsFile == "" && len(ids) == 0:
		return errors.InvalidParam("no records to match").WithDetail("kind=" + kind)
	case opts.groupsFile != "" && len(opts.set) > 0:
		return errors.InvalidParam("--set applies to IDs; put overrides in the groups file")
	}

	ctx := cmd.Context()
	rt, err := openRuntime(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer rt.Close()

	resOpts, err := rt.resolutionOptions(ctx)
	if err != nil {
		return err
	}
	svc := disambiguation.NewService(rt.store, cliCtx.Logger, resOpts...)

	if opts.groupsFile == "" {
		res, err := svc.Match(ctx, kind, ids, opts.set)
		if err != nil {
			return err
		}
		return PrintResult(cmd, (*matchResult)(res))
	}

	groups, err := readGroups(cmd, opts.groupsFile)
	if err != nil {
		return err
	}
	summary, err := svc.MatchGroups(ctx, kind, groups)
	if err != nil {
		return err
	}
	if err := PrintResult(cmd, (*groupsResult)(summary)); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return errors.New(errors.ErrCodeInternal, "some groups were not merged").
			WithDetail(strconv.Itoa(summary.Failed) + " of " + strconv.Itoa(len(summary.Results)) + " failed")
	}
	return nil
}

func readGroups(cmd *cobra.Command, name string) ([]disambiguation.Group, error) {
	var r io.Reader = cmd.InOrStdin()
	if name != stdinName {
		f, err := os.Open(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "cannot open groups file").WithDetail("file=" + name)
		}
		defer f.Close()
		r = f
	}
	return disambiguation.DecodeGroups(r)
}

// ─────────────────────────────────────────────────────────────────────────────
// Result
// ─────────────────────────────────────────────────────────────────────────────

type matchResult resolution.Result

func (r *matchResult) String() string {
	s := fmt.Sprintf("merged %d %s records into %s", len(r.Members), r.Kind, r.ID)
	if len(r.Retired) > 0 {
		s += " (retired " + strings.Join(r.Retired, ", ") + ")"
	}
	return s
}

func (r *matchResult) TableHeaders() []string { return []string{"KIND", "ID", "MEMBERS", "RETIRED"} }

func (r *matchResult) TableRows() [][]string {
	return [][]string{{r.Kind, r.ID, strings.Join(r.Members, ","), strings.Join(r.Retired, ",")}}
}

type groupsResult disambiguation.Summary

func (s *groupsResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d groups merged, %d failed", s.Kind, s.Merged, s.Failed)
	for _, r := range s.Results {
		if r.Error != "" {
			fmt.Fprintf(&sb, "\n%s: %s", r.Key, r.Error)
		}
	}
	return sb.String()
}

func (s *groupsResult) TableHeaders() []string { return []string{"KEY", "ID", "MEMBERS", "ERROR"} }

func (s *groupsResult) TableRows() [][]string {
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		rows = append(rows, []string{r.Key, r.ID, strconv.Itoa(len(r.Members)), r.Error})
	}
	return rows
}

//Personal.AI order the ending
