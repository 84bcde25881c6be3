package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/history"
	"github.com/roach88/strata/internal/temporal"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history <identity>",
		Short:         "Show the revision history index of an identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

// HistoryView is the JSON projection of a history index.
type HistoryView struct {
	Identity string             `json:"identity"`
	Entries  []HistoryEntryView `json:"entries"`
}

// HistoryEntryView is the JSON projection of one history entry.
type HistoryEntryView struct {
	Revision       int64  `json:"revision"`
	Key            string `json:"key"`
	EffectiveStart string `json:"effective_start"`
	EffectiveUntil string `json:"effective_until"`
}

// NewHistoryView projects a history index for output.
func NewHistoryView(ix *history.Index) HistoryView {
	view := HistoryView{
		Identity: ix.Identity,
		Entries:  make([]HistoryEntryView, 0, len(ix.Entries)),
	}
	for _, e := range ix.Entries {
		until := "open"
		if !temporal.IsOpenEnded(e.EffectiveUntil) {
			until = e.EffectiveUntil.UTC().Format(time.RFC3339Nano)
		}
		view.Entries = append(view.Entries, HistoryEntryView{
			Revision:       e.Revision,
			Key:            e.Key,
			EffectiveStart: e.EffectiveStart.UTC().Format(time.RFC3339Nano),
			EffectiveUntil: until,
		})
	}
	return view
}

func runHistory(opts *RootOptions, identity string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	eng, err := openEngine(opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	ix, err := eng.ReadHistory(cmd.Context(), identity)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading history failed", err)
	}
	if ix == nil {
		f.Error("E205", fmt.Sprintf("no history for %q", identity), nil)
		return NewExitError(ExitFailure, "not found")
	}

	view := NewHistoryView(ix)
	if opts.Format == "json" {
		return f.Success(view)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "history of %s (%d revisions)\n", view.Identity, len(view.Entries))
	for _, e := range view.Entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s .. %s\n", e.Revision, e.EffectiveStart, e.EffectiveUntil)
	}
	return nil
}
