package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/flux/internal/apps"
	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/devtools"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/middleware"
	"github.com/roach88/flux/internal/schema"
	"github.com/roach88/flux/internal/store"
	"github.com/roach88/flux/internal/testutil"
)

// CodePanic is the trace error code of a recovered reducer panic.
const CodePanic = "PANIC"

// codeError is the trace error code of failures without a store code.
const codeError = "ERROR"

type options struct {
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

// WithLogger routes store and middleware logs to logger. By default they
// are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

type runner struct {
	app      *apps.App
	store    store.Store
	devtools *devtools.Store
	clock    *testutil.DeterministicClock
	notes    *testutil.ListenerRecorder
	logger   *slog.Logger
	result   *Result
}

// Run executes scenario on a fresh store and evaluates its assertions.
//
// An error is returned only when the scenario cannot run at all (unknown
// app, bad preloaded state, malformed step). Step and assertion failures
// are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := newRunner(scenario, o.logger)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := r.step(i, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	final, err := ir.FromGo(r.store.GetState())
	if err != nil {
		return nil, fmt.Errorf("final state: %w", err)
	}
	r.result.FinalState = final
	r.result.Notifications = r.notes.Count()

	for _, msg := range EvaluateAssertions(r.result, scenario.Assertions) {
		r.result.AddError(msg)
	}
	return r.result, nil
}

func newRunner(scenario *Scenario, logger *slog.Logger) (*runner, error) {
	app, err := apps.Lookup(scenario.App)
	if err != nil {
		return nil, err
	}

	enhancer, handle := devtools.Instrument(
		devtools.WithMaxAge(scenario.MaxAge),
		devtools.WithRegistry(app.Registry),
		devtools.WithStateDecoder(app.DecodeState),
		devtools.WithLogger(logger),
	)

	schemaOpts := []schema.MiddlewareOption{schema.WithLogger(logger)}
	if scenario.Strict {
		schemaOpts = append(schemaOpts, schema.Strict())
	}

	storeOpts := []store.Option{
		store.WithLogger(logger),
		store.WithEnhancer(store.Compose(
			store.ApplyMiddleware(
				middleware.Recoverer(logger),
				middleware.Logger(logger),
				schema.Middleware(app.Schema, schemaOpts...),
			),
			enhancer,
		)),
	}
	if scenario.Preloaded != nil {
		preloaded, err := decodePreloaded(app, scenario.Preloaded)
		if err != nil {
			return nil, err
		}
		storeOpts = append(storeOpts, store.WithPreloadedState(preloaded))
	}

	st, err := store.New(app.Reducer, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	notes, _ := testutil.Attach(st)
	return &runner{
		app:      app,
		store:    st,
		devtools: handle.Store(),
		clock:    testutil.NewDeterministicClock(),
		notes:    notes,
		logger:   logger,
		result:   NewResult(scenario.Name),
	}, nil
}

func decodePreloaded(app *apps.App, v any) (store.State, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, fmt.Errorf("preloaded state: %w", err)
	}
	state, err := app.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("preloaded state: %w", err)
	}
	return state, nil
}

func (r *runner) step(index int, step Step) error {
	event := TraceEvent{Seq: r.clock.Next()}

	var stepErr error
	if step.Control != nil {
		event.Kind = KindControl
		event.Action, stepErr = r.control(step.Control)
	} else {
		event.Kind = KindDispatch
		action, args, err := r.decode(step.Dispatch)
		if err != nil {
			return err
		}
		event.Action, event.Args = actionType(action), args
		_, stepErr = r.store.Dispatch(action)
	}
	if stepErr != nil {
		event.Error = errorCode(stepErr)
	}

	state, err := ir.FromGo(r.store.GetState())
	if err != nil {
		return fmt.Errorf("state after step: %w", err)
	}
	event.State = state
	r.result.Trace = append(r.result.Trace, event)

	r.check(index, step, stepErr)
	r.logger.Debug("scenario step completed",
		"step", index,
		"kind", event.Kind,
		"action", event.Action,
		"error", event.Error,
	)
	return nil
}

// check compares the step outcome with its expect_error clause.
func (r *runner) check(index int, step Step, err error) {
	switch {
	case step.ExpectError == "" && err != nil:
		r.result.AddError(fmt.Sprintf("step %d: unexpected error: %v", index, err))
	case step.ExpectError != "" && err == nil:
		r.result.AddError(fmt.Sprintf("step %d: expected error %q, step succeeded", index, step.ExpectError))
	case step.ExpectError != "" && !errorMatches(err, step.ExpectError):
		r.result.AddError(fmt.Sprintf("step %d: expected error %q, got %s: %v",
			index, step.ExpectError, errorCode(err), err))
	}
}

// decode turns a YAML dispatch value into what the store receives. Records
// whose type the app registers become typed actions; anything else is
// dispatched as is so the store can reject it.
func (r *runner) decode(v any) (any, ir.Object, error) {
	rec, ok := v.(map[string]any)
	if !ok {
		return v, nil, nil
	}
	if t, _ := rec[codec.TypeField].(string); t == "" {
		return rec, nil, nil
	}

	val, err := ir.FromGo(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: %w", err)
	}
	obj := val.(ir.Object)
	action, err := r.app.Registry.Decode(obj)
	if err != nil {
		// The payload does not fit the typed action. Dispatch the record
		// so the schema stage reports it.
		r.logger.Debug("dispatching undecodable record", "action", rec[codec.TypeField], "error", err)
		action = store.Record(rec)
	} else if obj, err = codec.Encode(action); err != nil {
		return nil, nil, err
	}

	delete(obj, codec.TypeField)
	if len(obj) == 0 {
		obj = nil
	}
	return action, obj, nil
}

func (r *runner) control(c *ControlStep) (string, error) {
	ds := r.devtools
	if ds == nil {
		return "", errors.New("devtools store not available")
	}

	switch strings.ToLower(c.Kind) {
	case "jump_to":
		return devtools.Control{Kind: devtools.KindJumpTo, Index: c.Index}.String(), ds.JumpTo(c.Index)
	case "toggle":
		return devtools.Control{Kind: devtools.KindToggle, Index: c.Index}.String(), ds.Toggle(c.Index)
	case "reset":
		return string(devtools.KindReset), ds.Reset()
	case "commit":
		return string(devtools.KindCommit), ds.Commit()
	case "rollback":
		return string(devtools.KindRollback), ds.Rollback()
	case "sweep":
		return string(devtools.KindSweep), ds.Sweep()
	default:
		return "", fmt.Errorf("unknown control kind %q", c.Kind)
	}
}

func actionType(v any) string {
	if a, ok := v.(store.Action); ok {
		return a.ActionType()
	}
	if rec, ok := v.(map[string]any); ok {
		if t, ok := rec[codec.TypeField].(string); ok {
			return t
		}
	}
	return ""
}

func errorCode(err error) string {
	var se *store.Error
	switch {
	case errors.As(err, &se):
		return string(se.Code)
	case errors.Is(err, middleware.ErrPanic):
		return CodePanic
	default:
		return codeError
	}
}

func errorMatches(err error, want string) bool {
	return errorCode(err) == want || strings.Contains(err.Error(), want)
}
