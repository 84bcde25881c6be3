package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/engine"
)

// newFormatter builds the output formatter for one command run.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openEngine opens the engine over the configured database path.
func openEngine(opts *RootOptions) (*engine.Engine, error) {
	if opts.DBPath == "" {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("no database path: set --db or %s", DefaultConfigFile))
	}
	eng, err := engine.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("opening database %s", opts.DBPath), err)
	}
	return eng, nil
}

// parseInstant parses a timestamp argument. "now" (or empty) means the
// current time; everything else must be RFC 3339 with an explicit
// offset. Bare dates are rejected rather than guessed into a zone.
func parseInstant(s string) (time.Time, error) {
	if s == "" || s == "now" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC 3339 with offset", s)
	}
	return t.UTC(), nil
}
