package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/apps"
	"github.com/roach88/flux/internal/devtools"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/journal"
	"github.com/roach88/flux/internal/loop"
	"github.com/roach88/flux/internal/middleware"
	"github.com/roach88/flux/internal/schema"
	"github.com/roach88/flux/internal/store"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	App       string
	Database  string
	File      string
	Preloaded string
	Strict    bool
	MaxAge    int
	Export    string
	Import    string
}

// DispatchedAction is the outcome of one action.
type DispatchedAction struct {
	Seq   int64  `json:"seq"`
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// DispatchResult is the outcome of a dispatch run.
type DispatchResult struct {
	App        string             `json:"app"`
	Session    string             `json:"session,omitempty"`
	Actions    []DispatchedAction `json:"actions"`
	Rejected   int                `json:"rejected"`
	FinalState json.RawMessage    `json:"final_state"`
	StateHash  string             `json:"state_hash"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch [action-json...]",
		Short: "Dispatch actions through an app store",
		Long: `Dispatch JSON action records through a store of one of the example apps.

The store validates payloads against the app's CUE schema, logs every
dispatch, keeps a devtools history and, with --db, records each action and
resulting state to a journal session for later replay.

Exit codes:
  0 - All actions were accepted
  1 - One or more actions were rejected
  2 - Command error (bad JSON, unknown app, database error)

Examples:
  flux dispatch --app counter '{"type":"UP"}' '{"type":"ADD","by":2}'
  flux dispatch --app todos --db ./flux.db --file actions.jsonl
  flux dispatch --app counter --preloaded '{"min":10}' --export history.json '{"type":"UP"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.App, "app", envOr(EnvApp, "counter"), "app to run")
	cmd.Flags().StringVar(&opts.Database, "db", os.Getenv(EnvDatabase), "journal database (optional)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", `JSON-lines file of actions ("-" for stdin)`)
	cmd.Flags().StringVar(&opts.Preloaded, "preloaded", "", "initial state as JSON")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject action types the schema does not declare")
	cmd.Flags().IntVar(&opts.MaxAge, "max-age", 0, "bound the devtools history (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "write the devtools history to this file")
	cmd.Flags().StringVar(&opts.Import, "import", "", "start from a devtools history exported earlier")

	return cmd
}

func runDispatch(ctx context.Context, opts *DispatchOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	app, err := apps.Lookup(opts.App)
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown app", err)
	}

	records, err := readRecords(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read actions", err)
	}
	if len(records) == 0 && opts.Import == "" {
		return NewExitError(ExitCommandError, "no actions given")
	}

	var recorder *journal.Recorder
	devOpts := []devtools.Option{
		devtools.WithMaxAge(opts.MaxAge),
		devtools.WithRegistry(app.Registry),
		devtools.WithStateDecoder(app.DecodeState),
		devtools.WithLogger(logger),
	}
	if opts.Database != "" {
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		recorder = journal.NewRecorder(j, logger)
		devOpts = append(devOpts, devtools.WithObserver(recorder))
	}
	if opts.Verbose {
		devOpts = append(devOpts, devtools.WithObserver(devtools.NewSlogObserver(logger, slog.LevelDebug)))
	}
	enhancer, handle := devtools.Instrument(devOpts...)

	st, err := newAppStore(app, opts, enhancer, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create store", err)
	}
	defer st.Teardown()

	if opts.Import != "" {
		data, err := os.ReadFile(opts.Import)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		if err := handle.Store().Import(data); err != nil {
			return WrapExitError(ExitCommandError, "failed to import history", err)
		}
	}

	result := DispatchResult{App: app.Name, Actions: []DispatchedAction{}}
	if recorder != nil {
		sess, err := recorder.Begin(ctx, opts.sessionID(), app.Name, st.GetState(), opts.now())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal session", err)
		}
		result.Session = sess.ID
		out.VerboseLog("recording session %s", sess.ID)
	}

	result.Actions, result.Rejected = dispatchAll(ctx, st, app, records, logger)

	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return WrapExitError(ExitCommandError, "journal write failed", err)
		}
	}

	final := st.GetState()
	if err := app.Schema.ValidateState(final); err != nil {
		logger.Warn("final state violates schema", "app", app.Name, "error", err)
	}
	if result.FinalState, err = ir.MarshalCanonical(final); err != nil {
		return WrapExitError(ExitCommandError, "failed to encode final state", err)
	}
	if result.StateHash, err = ir.StateHash(final); err != nil {
		return WrapExitError(ExitCommandError, "failed to hash final state", err)
	}

	if opts.Export != "" {
		data, err := handle.Store().Export()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to export history", err)
		}
		if err := os.WriteFile(opts.Export, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write history", err)
		}
	}

	if err := outputDispatch(out, result); err != nil {
		return err
	}
	if result.Rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d action(s) rejected", result.Rejected))
	}
	return nil
}

// newAppStore builds the store stack shared by dispatch: panic recovery,
// dispatch logging and schema validation in front of devtools.
func newAppStore(app *apps.App, opts *DispatchOptions, enhancer store.Enhancer, logger *slog.Logger) (store.Store, error) {
	schemaOpts := []schema.MiddlewareOption{schema.WithLogger(logger)}
	if opts.Strict {
		schemaOpts = append(schemaOpts, schema.Strict())
	}

	storeOpts := []store.Option{
		store.WithLogger(logger),
		store.WithEnhancer(store.Compose(
			store.ApplyMiddleware(
				middleware.Recoverer(logger),
				middleware.Logger(logger, middleware.WithLevel(slog.LevelInfo)),
				schema.Middleware(app.Schema, schemaOpts...),
			),
			enhancer,
		)),
	}
	if opts.Preloaded != "" {
		if _, err := ir.Parse([]byte(opts.Preloaded)); err != nil {
			return nil, fmt.Errorf("preloaded state: %w", err)
		}
		preloaded, err := app.DecodeState([]byte(opts.Preloaded))
		if err != nil {
			return nil, fmt.Errorf("preloaded state: %w", err)
		}
		storeOpts = append(storeOpts, store.WithPreloadedState(preloaded))
	}
	return store.New(app.Reducer, storeOpts...)
}

// dispatchAll feeds records through a dispatch loop in order.
func dispatchAll(ctx context.Context, st store.Store, app *apps.App, records []ir.Object, logger *slog.Logger) ([]DispatchedAction, int) {
	l := loop.New(st, loop.WithLogger(logger))
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	actions := make([]DispatchedAction, 0, len(records))
	rejected := 0
	for i, rec := range records {
		outcome := DispatchedAction{Seq: int64(i + 1), Type: recordType(rec)}

		var action any
		decoded, err := app.Registry.Decode(rec)
		if err != nil {
			// Let the schema stage explain what is wrong with the payload.
			action = ir.ToGo(rec)
		} else {
			action = decoded
		}

		if _, err := l.Submit(ctx, action); err != nil {
			outcome.Error = err.Error()
			rejected++
			if errors.Is(err, loop.ErrStopped) || ctx.Err() != nil {
				actions = append(actions, outcome)
				break
			}
		}
		actions = append(actions, outcome)
	}

	l.Stop()
	if err := <-done; err != nil {
		logger.Warn("dispatch loop stopped early", "error", err)
	}
	return actions, rejected
}

func outputDispatch(out *OutputFormatter, result DispatchResult) error {
	if out.JSON() {
		var cliErr *CLIError
		if result.Rejected > 0 {
			cliErr = &CLIError{Code: CodeRejected, Message: fmt.Sprintf("%d action(s) rejected", result.Rejected)}
		}
		return out.Respond(result, cliErr)
	}

	out.Printf("App: %s\n", result.App)
	if result.Session != "" {
		out.Printf("Session: %s\n", result.Session)
	}
	for _, a := range result.Actions {
		if a.Error != "" {
			out.Printf("  ✗ [%d] %s: %s\n", a.Seq, a.Type, a.Error)
			continue
		}
		out.Printf("  ✓ [%d] %s\n", a.Seq, a.Type)
	}
	out.Printf("Final state: %s\n", result.FinalState)
	out.Printf("State hash: %s\n", result.StateHash)
	return nil
}
