package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <manifest-dir>",
		Short:         "Validate a collection manifest without applying it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	manifest, errs := LoadManifest(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		for _, err := range errs {
			f.Error(loadErrorCode(err), err.Error(), nil)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation errors", len(errs)))
	}

	entries := len(manifest.Entries)
	if manifest.Default != nil {
		entries++
	}
	if opts.Format == "json" {
		return f.Success(map[string]any{"valid": true, "entries": entries, "files": manifest.FileCount})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "manifest valid: %d entries in %d files\n", entries, manifest.FileCount)
	return nil
}

// loadErrorCode extracts the code from a LoadError, or the generic
// code for anything else.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
