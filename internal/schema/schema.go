package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"

	"github.com/roach88/flux/internal/codec"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/store"
)

// ErrUnknownType is returned by Check for action types the schema does
// not declare.
var ErrUnknownType = errors.New("action type not declared in schema")

// Error is a schema compilation or validation failure.
type Error struct {
	ActionType string
	Message    string
	Pos        token.Pos
}

func (e *Error) Error() string {
	prefix := ""
	if e.Pos.IsValid() {
		prefix = fmt.Sprintf("%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.ActionType != "" {
		return fmt.Sprintf("%s%s: %s", prefix, e.ActionType, e.Message)
	}
	return prefix + e.Message
}

// Schema is a compiled set of action (and optionally state) constraints.
// Safe for concurrent use after construction.
type Schema struct {
	ctx     *cue.Context
	actions cue.Value
	state   cue.Value
	types   []string
}

// Compile builds a schema from CUE source. filename is used in error
// positions.
func Compile(src, filename string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return build(ctx, v)
}

// LoadDir builds a schema from every .cue file in dir, unified in
// lexical order.
func LoadDir(dir string) (*Schema, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan schema directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	v := ctx.CompileString("{}")
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		f, err := parser.ParseFile(file, data)
		if err != nil {
			return nil, formatCUEError("", err)
		}
		v = v.Unify(ctx.BuildFile(f))
	}
	return build(ctx, v)
}

func build(ctx *cue.Context, v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	actions := v.LookupPath(cue.ParsePath("actions"))
	if !actions.Exists() {
		return nil, &Error{Message: `schema must declare "actions"`, Pos: v.Pos()}
	}

	iter, err := actions.Fields()
	if err != nil {
		return nil, formatCUEError("", err)
	}
	var types []string
	for iter.Next() {
		types = append(types, iter.Label())
	}
	slices.Sort(types)

	return &Schema{
		ctx:     ctx,
		actions: actions,
		state:   v.LookupPath(cue.ParsePath("state")),
		types:   types,
	}, nil
}

// Types returns the declared action types in sorted order.
func (s *Schema) Types() []string {
	return slices.Clone(s.types)
}

// Has reports whether actionType is declared.
func (s *Schema) Has(actionType string) bool {
	_, found := slices.BinarySearch(s.types, actionType)
	return found
}

// Check validates a record. Undeclared types return an error wrapping
// ErrUnknownType.
func (s *Schema) Check(record ir.Object) error {
	t, _ := record[codec.TypeField].(ir.String)
	actionType := string(t)
	if actionType == "" {
		return &Error{Message: `record has no "type"`}
	}
	if !s.Has(actionType) {
		return fmt.Errorf("%s: %w", actionType, ErrUnknownType)
	}

	payload := make(map[string]any, len(record))
	for k, v := range record {
		if k != codec.TypeField {
			payload[k] = ir.ToGo(v)
		}
	}

	constraint := s.actions.LookupPath(cue.MakePath(cue.Str(actionType)))
	unified := constraint.Unify(s.ctx.Encode(payload))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(actionType, err)
	}
	return nil
}

// Validate encodes action and checks it.
func (s *Schema) Validate(action store.Action) error {
	obj, err := codec.Encode(action)
	if err != nil {
		return err
	}
	return s.Check(obj)
}

// HasState reports whether the schema constrains the state.
func (s *Schema) HasState() bool {
	return s.state.Exists()
}

// ValidateState checks state against the "state" constraint. Returns nil
// if the schema has none.
func (s *Schema) ValidateState(state any) error {
	if !s.HasState() {
		return nil
	}
	v, err := ir.FromGo(state)
	if err != nil {
		return err
	}
	unified := s.state.Unify(s.ctx.Encode(ir.ToGo(v)))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError("", err)
	}
	return nil
}

// formatCUEError extracts position info from CUE errors. All messages are
// kept; the position is the first one reported.
func formatCUEError(actionType string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{ActionType: actionType, Message: err.Error()}
	}

	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}

	out := &Error{ActionType: actionType, Message: strings.Join(msgs, "; ")}
	if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
