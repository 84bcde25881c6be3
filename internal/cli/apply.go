package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <manifest-dir>",
		Short: "Apply versioning toggles from a CUE manifest",
		Long: `Load a collection manifest and apply its versioning toggles to the
database. The manifest must be valid in full before anything is
applied; use 'strata validate' to check it first.

Example:
  strata apply ./collections`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runApply(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)

	manifest, errs := LoadManifest(dir, LoadModeFailFast)
	if len(errs) > 0 {
		f.Error(loadErrorCode(errs[0]), errs[0].Error(), nil)
		return NewExitError(ExitFailure, "manifest invalid")
	}

	eng, err := openEngine(opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	applied := 0
	if manifest.Default != nil {
		if err := eng.ConfigureVersioning(cmd.Context(), "", *manifest.Default); err != nil {
			return WrapExitError(ExitCommandError, "applying default toggle", err)
		}
		applied++
	}
	for _, entry := range manifest.Entries {
		if err := eng.ConfigureVersioning(cmd.Context(), entry.TypeTag, entry.Versioned); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("applying toggle for %s", entry.TypeTag), err)
		}
		f.VerboseLog("versioning for %s: %v", entry.TypeTag, entry.Versioned)
		applied++
	}

	if opts.Format == "json" {
		return f.Success(map[string]any{"applied": applied, "files": manifest.FileCount})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d toggles from %d files\n", applied, manifest.FileCount)
	return nil
}
