package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/temporal"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Type      string
	Body      string
	Effective string
	ETag      string
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <identity>",
		Short: "Write a document revision",
		Long: `Write a document under its stable identity.

For versioned types the write becomes an immutable revision with an
effective-time interval; the identity always resolves to whichever
revision is current. Writes never target revision keys directly.

Example:
  strata put order-1 --type orders --body '{"state":"open"}' --effective 2024-03-01T00:00:00Z`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "document type tag (required)")
	cmd.Flags().StringVar(&opts.Body, "body", "{}", "document body as JSON")
	cmd.Flags().StringVar(&opts.Effective, "effective", "now", "effective start (RFC 3339 or 'now')")
	cmd.Flags().StringVar(&opts.ETag, "etag", "", "concurrency token from a previous read")
	cmd.MarkFlagRequired("type")

	return cmd
}

func runPut(opts *PutOptions, identity string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	var body map[string]any
	if err := json.Unmarshal([]byte(opts.Body), &body); err != nil {
		return WrapExitError(ExitCommandError, "invalid --body JSON", err)
	}

	effective, err := parseInstant(opts.Effective)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --effective", err)
	}

	eng, err := openEngine(opts.RootOptions)
	if err != nil {
		return err
	}
	defer eng.Close()

	var writeOpts []engine.WriteOption
	if opts.ETag != "" {
		writeOpts = append(writeOpts, engine.WithToken(opts.ETag))
	}

	res, err := eng.Write(cmd.Context(), identity, opts.Type, body, effective, writeOpts...)
	if err != nil {
		switch {
		case temporal.IsVeto(err, ""):
			f.Error("E201", err.Error(), nil)
			return NewExitError(ExitFailure, "write rejected")
		case docstore.IsConflict(err):
			f.Error("E202", "concurrency token is stale; re-read and retry", nil)
			return NewExitError(ExitFailure, "write conflict")
		default:
			return WrapExitError(ExitCommandError, "write failed", err)
		}
	}

	if opts.Format == "json" {
		return f.Success(res)
	}
	if res.Revision == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s (unversioned)\n", identity)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s revision %d (current=%v)\n", identity, res.Revision, res.Current)
	f.VerboseLog("revision key: %s", res.TemporalKey)
	return nil
}
