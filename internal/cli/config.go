package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	Enable  bool
	Disable bool
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config <type>",
		Short: "Toggle versioning for a document type",
		Long: `Toggle versioning for one document type. The type "default" sets the
fallback for types without an explicit entry. Toggles persist in the
database and apply to future writes only; existing revisions are kept.

Example:
  strata config orders --enable`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Enable, "enable", false, "enable versioning")
	cmd.Flags().BoolVar(&opts.Disable, "disable", false, "disable versioning")
	cmd.MarkFlagsMutuallyExclusive("enable", "disable")
	cmd.MarkFlagsOneRequired("enable", "disable")

	return cmd
}

func runConfig(opts *ConfigOptions, typeTag string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	if typeTag == "default" {
		typeTag = ""
	}

	eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	enabled := opts.Enable
	if err := eng.ConfigureVersioning(cmd.Context(), typeTag, enabled); err != nil {
		return WrapExitError(ExitCommandError, "configuring versioning failed", err)
	}

	label := typeTag
	if label == "" {
		label = "default"
	}
	if opts.Format == "json" {
		return f.Success(map[string]any{"type": label, "enabled": enabled})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "versioning for %s: %v\n", label, enabled)
	return nil
}
