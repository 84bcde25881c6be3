package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <identity>",
		Short:         "Read the current document at an identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runGet(opts *RootOptions, identity string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	eng, err := openEngine(opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	doc, err := eng.Get(cmd.Context(), identity)
	if err != nil {
		return WrapExitError(ExitCommandError, "read failed", err)
	}
	if doc == nil {
		f.Error("E203", fmt.Sprintf("no current document at %q", identity), nil)
		return NewExitError(ExitFailure, "not found")
	}

	return printDocument(f, cmd, doc, opts.Format)
}
