package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Where []string
	All   bool
	Skip  int
	Take  int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <type>",
		Short: "Query documents of a type",
		Long: `Query documents of one type. Versioned types return only current
revisions unless --all is given, which also returns historical revision
copies.

Example:
  strata query orders --where region=emea --take 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "field=value predicate (repeatable, all must match)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "include historical revisions")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "results to skip")
	cmd.Flags().IntVar(&opts.Take, "take", 0, "maximum results (0 = no limit)")

	return cmd
}

func runQuery(opts *QueryOptions, typeTag string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	spec := query.New(typeTag).Page(opts.Skip, opts.Take)
	if opts.All {
		spec = spec.IncludeAllEffectiveTime()
	}
	if len(opts.Where) > 0 {
		pred, err := parseWhere(opts.Where)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --where", err)
		}
		spec = spec.Where(pred)
	}

	eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	docs, err := eng.Query(cmd.Context(), spec)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	if opts.Format == "json" {
		views := make([]DocumentView, 0, len(docs))
		for _, doc := range docs {
			views = append(views, NewDocumentView(doc))
		}
		return f.Success(views)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d documents\n", len(docs))
	for _, doc := range docs {
		view := NewDocumentView(doc)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\trev=%d\t[%s]\n", view.Key, view.Revision, view.Status)
	}
	return nil
}

// parseWhere converts field=value pairs into a predicate. Multiple
// pairs combine with AND.
func parseWhere(pairs []string) (query.Predicate, error) {
	preds := make([]query.Predicate, 0, len(pairs))
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("want field=value, got %q", pair)
		}
		preds = append(preds, query.Equals{Field: field, Value: value})
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return query.And{Predicates: preds}, nil
}
