package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/docstore"
)

// AsOfOptions holds flags for the asof command.
type AsOfOptions struct {
	*RootOptions
	Revision int64
}

// NewAsOfCommand creates the asof command.
func NewAsOfCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AsOfOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "asof <identity> [time]",
		Short: "Read a document as of an effective time",
		Long: `Read the revision of a document whose effective interval contains the
given instant. Omitting the time reads as of now. Alternatively,
--revision reads one specific revision by number.

Example:
  strata asof order-1 2024-03-01T00:00:00Z`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := "now"
			if len(args) == 2 {
				at = args[1]
			}
			return runAsOf(opts, args[0], at, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Revision, "revision", 0, "read this revision number instead of resolving by time")

	return cmd
}

func runAsOf(opts *AsOfOptions, identity, at string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	var doc *docstore.Document
	if opts.Revision > 0 {
		doc, err = eng.ReadRevision(cmd.Context(), identity, opts.Revision)
	} else {
		asOf, parseErr := parseInstant(at)
		if parseErr != nil {
			return WrapExitError(ExitCommandError, "invalid time", parseErr)
		}
		doc, err = eng.ReadAsOf(cmd.Context(), identity, asOf)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "read failed", err)
	}
	if doc == nil {
		f.Error("E204", fmt.Sprintf("nothing effective for %q", identity), nil)
		return NewExitError(ExitFailure, "not found")
	}

	return printDocument(f, cmd, doc, opts.Format)
}

// printDocument renders one document in the configured format.
func printDocument(f *OutputFormatter, cmd *cobra.Command, doc *docstore.Document, format string) error {
	view := NewDocumentView(doc)
	if format == "json" {
		return f.Success(view)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%s)\n", view.Key, view.TypeTag)
	if view.Revision > 0 {
		fmt.Fprintf(w, "  revision: %d [%s]\n", view.Revision, view.Status)
		fmt.Fprintf(w, "  effective: %s .. %s\n", view.EffectiveStart, view.EffectiveUntil)
	}
	printBody(w, view.Body)
	return nil
}

func printBody(w io.Writer, body map[string]any) {
	data, err := json.Marshal(body)
	if err != nil {
		fmt.Fprintf(w, "  body: %v\n", body)
		return
	}
	fmt.Fprintf(w, "  body: %s\n", data)
}
