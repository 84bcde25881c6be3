package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RevisionsOptions holds flags for the revisions command.
type RevisionsOptions struct {
	*RootOptions
	Start int64
	Limit int
}

// NewRevisionsCommand creates the revisions command.
func NewRevisionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RevisionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "revisions <identity>",
		Short:         "List the revisions of an identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevisions(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Start, "start", 1, "first revision number to include")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum revisions per page")

	return cmd
}

func runRevisions(opts *RevisionsOptions, identity string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	docs, err := eng.ReadRevisions(cmd.Context(), identity, opts.Start, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing revisions failed", err)
	}

	if opts.Format == "json" {
		views := make([]DocumentView, 0, len(docs))
		for _, doc := range docs {
			views = append(views, NewDocumentView(doc))
		}
		return f.Success(views)
	}

	if len(docs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no revisions for %s\n", identity)
		return nil
	}
	for _, doc := range docs {
		view := NewDocumentView(doc)
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t[%s]\t%s .. %s\n",
			view.Revision, view.Status, view.EffectiveStart, view.EffectiveUntil)
	}
	return nil
}
