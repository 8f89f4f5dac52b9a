package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/middleware"
	"github.com/roach88/flux/internal/store"
)

// StateDecoder rebuilds an application state from its canonical JSON.
type StateDecoder func(data []byte) (store.State, error)

// GenericState decodes into plain Go values (map[string]any, []any,
// string, int64, bool, nil). Suitable for reducers over untyped state.
func GenericState(data []byte) (store.State, error) {
	v, err := ir.Parse(data)
	if err != nil {
		return nil, err
	}
	return ir.ToGo(v), nil
}

// Mismatch is a replayed entry whose resulting state differs from the
// recorded one. Seq 0 refers to the session's initial state.
type Mismatch struct {
	Seq          int64
	ActionType   string
	ExpectedHash string
	ActualHash   string
	Expected     json.RawMessage
	Actual       json.RawMessage
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Session    Session
	Replayed   int
	FinalState store.State
	FinalHash  string
	Mismatches []Mismatch
}

// Deterministic reports whether every replayed state matched the record.
func (r ReplayResult) Deterministic() bool {
	return len(r.Mismatches) == 0
}

type replayConfig struct {
	decoder StateDecoder
	logger  *slog.Logger
}

// ReplayOption configures Replay.
type ReplayOption func(*replayConfig)

// WithStateDecoder sets how the recorded initial state is rebuilt.
// Default: GenericState.
func WithStateDecoder(fn StateDecoder) ReplayOption {
	return func(c *replayConfig) {
		c.decoder = fn
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) ReplayOption {
	return func(c *replayConfig) {
		c.logger = logger
	}
}

// Replay re-runs a session's actions through a fresh store built on
// reducer and compares each resulting state hash with the recorded one.
//
// Actions are decoded with registry (nil decodes everything as
// store.Record). A dispatch failure or reducer panic aborts the replay
// with an error; a state difference does not and is reported as a Mismatch.
func (j *Journal) Replay(ctx context.Context, sessionID string, reducer store.Reducer, registry *codec.Registry, opts ...ReplayOption) (ReplayResult, error) {
	cfg := replayConfig{decoder: GenericState, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	sess, err := j.GetSession(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	entries, err := j.ReadEntries(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	initial, err := cfg.decoder(sess.InitialState)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: decode initial state: %w", err)
	}

	s, err := store.New(reducer,
		store.WithPreloadedState(initial),
		store.WithLogger(cfg.logger),
		store.WithEnhancer(store.ApplyMiddleware(middleware.Recoverer(cfg.logger))),
	)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	defer s.Teardown()

	result := ReplayResult{Session: sess}

	mismatch, err := compare(0, "", sess.InitialHash, sess.InitialState, s.GetState())
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}
	if mismatch != nil {
		result.Mismatches = append(result.Mismatches, *mismatch)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		action, err := registry.Decode(e.Action)
		if err != nil {
			return result, fmt.Errorf("replay seq %d: %w", e.Seq, err)
		}
		if _, err := s.Dispatch(action); err != nil {
			return result, fmt.Errorf("replay seq %d: %w", e.Seq, err)
		}
		result.Replayed++

		mismatch, err := compare(e.Seq, e.ActionType, e.StateHash, e.State, s.GetState())
		if err != nil {
			return result, fmt.Errorf("replay seq %d: %w", e.Seq, err)
		}
		if mismatch != nil {
			cfg.logger.Warn("replay mismatch",
				"session", sessionID,
				"seq", e.Seq,
				"action", e.ActionType,
				"expected", mismatch.ExpectedHash,
				"actual", mismatch.ActualHash,
			)
			result.Mismatches = append(result.Mismatches, *mismatch)
		}
	}

	result.FinalState = s.GetState()
	result.FinalHash, err = ir.StateHash(result.FinalState)
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}

	cfg.logger.Info("replay complete",
		"session", sessionID,
		"entries", result.Replayed,
		"mismatches", len(result.Mismatches),
	)
	return result, nil
}

func compare(seq int64, actionType, expectedHash string, expected json.RawMessage, actual store.State) (*Mismatch, error) {
	actualHash, err := ir.StateHash(actual)
	if err != nil {
		return nil, err
	}
	if actualHash == expectedHash {
		return nil, nil
	}

	actualJSON, err := ir.MarshalCanonical(actual)
	if err != nil {
		return nil, err
	}
	return &Mismatch{
		Seq:          seq,
		ActionType:   actionType,
		ExpectedHash: expectedHash,
		ActualHash:   actualHash,
		Expected:     expected,
		Actual:       actualJSON,
	}, nil
}
