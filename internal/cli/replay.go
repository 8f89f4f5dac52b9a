package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/apps"
	"github.com/roach88/flux/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplayMismatch is one replayed state that differs from the record.
type ReplayMismatch struct {
	Seq      int64  `json:"seq"`
	Action   string `json:"action,omitempty"`
	Expected string `json:"expected_hash"`
	Actual   string `json:"actual_hash"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string           `json:"session"`
	App           string           `json:"app"`
	Entries       int              `json:"entries"`
	FinalHash     string           `json:"final_hash"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journal sessions and verify determinism",
		Long: `Re-run every recorded action of a journal session through a fresh store of
the session's app and compare each resulting state hash with the recorded one.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (state differences detected)
  2 - Command error (database not found, unknown app, etc.)

Examples:
  flux replay --db ./flux.db
  flux replay --db ./flux.db --session 0190c5d2-...
  flux replay --db ./flux.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", os.Getenv(EnvDatabase), "journal database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay a specific session only")

	return cmd
}

// openJournal opens an existing journal. A missing file is a command error
// rather than a fresh empty database.
func openJournal(path string) (*journal.Journal, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("--db is required (or set %s)", EnvDatabase))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return j, nil
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	var ids []string
	if opts.Session != "" {
		ids = []string{opts.Session}
	} else {
		sessions, err := j.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(ids)),
		TotalSessions:    len(ids),
		AllDeterministic: true,
	}

	for _, id := range ids {
		sessResult, err := replaySession(ctx, j, id, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}
		result.Sessions = append(result.Sessions, sessResult)
		if !sessResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if err := outputReplay(out, result); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func replaySession(ctx context.Context, j *journal.Journal, id string, logger *slog.Logger) (ReplaySessionResult, error) {
	sess, err := j.GetSession(ctx, id)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	app, err := apps.Lookup(sess.App)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	res, err := j.Replay(ctx, id, app.Reducer, app.Registry,
		journal.WithStateDecoder(app.DecodeState),
		journal.WithLogger(logger),
	)
	if err != nil {
		return ReplaySessionResult{}, err
	}
	out := ReplaySessionResult{
		Session:       id,
		App:           sess.App,
		Entries:       res.Replayed,
		FinalHash:     res.FinalHash,
		Deterministic: res.Deterministic(),
	}
	for _, m := range res.Mismatches {
		out.Mismatches = append(out.Mismatches, ReplayMismatch{
			Seq:      m.Seq,
			Action:   m.ActionType,
			Expected: m.ExpectedHash,
			Actual:   m.ActualHash,
		})
	}
	return out, nil
}

func outputReplay(out *OutputFormatter, result ReplayResult) error {
	if out.JSON() {
		var cliErr *CLIError
		if !result.AllDeterministic {
			cliErr = &CLIError{Code: CodeDeterminism, Message: "determinism verification failed"}
		}
		return out.Respond(result, cliErr)
	}

	if result.TotalSessions == 0 {
		out.Printf("No sessions found in database.\n")
		return nil
	}

	out.Printf("Replay Summary: %d session(s)\n\n", result.TotalSessions)
	for _, s := range result.Sessions {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		out.Printf("%s Session: %s (%s)\n", status, s.Session, s.App)
		out.Printf("  Entries: %d\n", s.Entries)
		if out.Verbose {
			out.Printf("  Final hash: %s\n", s.FinalHash)
		}
		for _, m := range s.Mismatches {
			out.Printf("  Mismatch at seq %d %s: expected %s, got %s\n", m.Seq, m.Action, short(m.Expected), short(m.Actual))
		}
		out.Printf("\n")
	}

	if result.AllDeterministic {
		out.Printf("✓ All sessions verified deterministic\n")
	} else {
		out.Printf("✗ Determinism verification failed\n")
	}
	return nil
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
