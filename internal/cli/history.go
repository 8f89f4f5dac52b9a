package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	States   bool
}

// SessionSummary describes one recorded session.
type SessionSummary struct {
	ID        string    `json:"id"`
	App       string    `json:"app"`
	CreatedAt time.Time `json:"created_at"`
	Entries   int       `json:"entries"`
}

// HistoryEntry describes one recorded action.
type HistoryEntry struct {
	Seq       int64           `json:"seq"`
	Action    json.RawMessage `json:"action"`
	StateHash string          `json:"state_hash"`
	State     json.RawMessage `json:"state,omitempty"`
}

// SessionHistory is one session with its entries.
type SessionHistory struct {
	Session      SessionSummary  `json:"session"`
	InitialState json.RawMessage `json:"initial_state"`
	Entries      []HistoryEntry  `json:"entries"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List journal sessions or show one session's entries",
		Long: `Without arguments, list the sessions recorded in the journal. With a session
ID, show that session's actions in order.

Examples:
  flux history --db ./flux.db
  flux history --db ./flux.db 0190c5d2-... --states`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(args) == 0 {
				return runListSessions(ctx, opts, cmd)
			}
			return runShowSession(ctx, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", os.Getenv(EnvDatabase), "journal database (required)")
	cmd.Flags().BoolVar(&opts.States, "states", false, "include the state after each entry")

	return cmd
}

func runListSessions(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	sessions, err := j.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = summarize(s)
	}

	if out.JSON() {
		return out.Respond(summaries, nil)
	}
	if len(summaries) == 0 {
		out.Printf("No sessions found in database.\n")
		return nil
	}
	for _, s := range summaries {
		out.Printf("%s  %-8s  %3d entries  %s\n", s.ID, s.App, s.Entries, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runShowSession(ctx context.Context, opts *HistoryOptions, id string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	sess, err := j.GetSession(ctx, id)
	if errors.Is(err, journal.ErrSessionNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("no session %q", id), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	entries, err := j.ReadEntries(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}

	history := SessionHistory{
		Session:      summarize(sess),
		InitialState: sess.InitialState,
		Entries:      make([]HistoryEntry, len(entries)),
	}
	for i, e := range entries {
		action, err := ir.MarshalCanonical(e.Action)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode action", err)
		}
		history.Entries[i] = HistoryEntry{Seq: e.Seq, Action: action, StateHash: e.StateHash}
		if opts.States {
			history.Entries[i].State = e.State
		}
	}

	if out.JSON() {
		return out.Respond(history, nil)
	}

	out.Printf("Session %s (%s), %d entries\n", history.Session.ID, history.Session.App, history.Session.Entries)
	out.Printf("Initial state: %s\n", history.InitialState)
	for _, e := range history.Entries {
		out.Printf("  [%d] %s  %s\n", e.Seq, e.Action, short(e.StateHash))
		if opts.States {
			out.Printf("      => %s\n", e.State)
		}
	}
	return nil
}

func summarize(s journal.Session) SessionSummary {
	return SessionSummary{ID: s.ID, App: s.App, CreatedAt: s.CreatedAt, Entries: s.EntryCount}
}
