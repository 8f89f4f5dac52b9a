package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/apps"
	"github.com/roach88/flux/internal/ir"
	"github.com/roach88/flux/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	App       string
	SchemaDir string
	File      string
	State     string
	Strict    bool
}

// ValidatedAction is the verdict for one action record.
type ValidatedAction struct {
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Valid    bool   `json:"valid"`
	Declared bool   `json:"declared"`
	Error    string `json:"error,omitempty"`
}

// ValidateResult is the outcome of the validate command.
type ValidateResult struct {
	Schema     string            `json:"schema"`
	Types      []string          `json:"types"`
	Actions    []ValidatedAction `json:"actions"`
	StateValid *bool             `json:"state_valid,omitempty"`
	StateError string            `json:"state_error,omitempty"`
	Invalid    int               `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [action-json...]",
		Short: "Validate action records and states against a CUE schema",
		Long: `Check JSON action records (and optionally a state) against an app's
embedded CUE schema or the schema in a directory of .cue files.

Without actions or --state, the schema is only compiled and its declared
action types listed.

Exit codes:
  0 - Everything is valid
  1 - One or more records (or the state) are invalid
  2 - Command error (schema does not compile, bad JSON, etc.)

Examples:
  flux validate --app todos '{"type":"todos/add","text":"write"}'
  flux validate --schema ./schema --file actions.jsonl --strict
  flux validate --app counter --state '{"min":3}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.App, "app", envOr(EnvApp, "counter"), "app whose schema to use")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of .cue files (overrides --app)")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", `JSON-lines file of actions ("-" for stdin)`)
	cmd.Flags().StringVar(&opts.State, "state", "", "state JSON to validate")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat undeclared action types as invalid")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	sch, name, err := loadValidationSchema(opts)
	if err != nil {
		return err
	}

	records, err := readRecords(args, opts.File, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read actions", err)
	}

	result := ValidateResult{Schema: name, Types: sch.Types(), Actions: []ValidatedAction{}}
	for i, rec := range records {
		v := ValidatedAction{Index: i + 1, Type: recordType(rec), Valid: true, Declared: true}
		if err := sch.Check(rec); err != nil {
			switch {
			case errors.Is(err, schema.ErrUnknownType) && !opts.Strict:
				v.Declared = false
			case errors.Is(err, schema.ErrUnknownType):
				v.Declared, v.Valid, v.Error = false, false, err.Error()
			default:
				v.Valid, v.Error = false, err.Error()
			}
		}
		if !v.Valid {
			result.Invalid++
		}
		result.Actions = append(result.Actions, v)
	}

	if opts.State != "" {
		state, err := ir.Parse([]byte(opts.State))
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid state JSON", err)
		}
		valid := true
		if err := sch.ValidateState(ir.ToGo(state)); err != nil {
			valid = false
			result.StateError = err.Error()
			result.Invalid++
		}
		result.StateValid = &valid
	}

	if err := outputValidate(out, result); err != nil {
		return err
	}
	if result.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid", result.Invalid))
	}
	return nil
}

func loadValidationSchema(opts *ValidateOptions) (*schema.Schema, string, error) {
	if opts.SchemaDir != "" {
		sch, err := schema.LoadDir(opts.SchemaDir)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to load schema", err)
		}
		return sch, opts.SchemaDir, nil
	}

	app, err := apps.Lookup(opts.App)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "unknown app", err)
	}
	return app.Schema, app.Name, nil
}

func outputValidate(out *OutputFormatter, result ValidateResult) error {
	if out.JSON() {
		var cliErr *CLIError
		if result.Invalid > 0 {
			cliErr = &CLIError{Code: CodeInvalidAction, Message: fmt.Sprintf("%d invalid", result.Invalid)}
		}
		return out.Respond(result, cliErr)
	}

	out.Printf("Schema %s declares %d action type(s)\n", result.Schema, len(result.Types))
	if out.Verbose {
		for _, t := range result.Types {
			out.Printf("  - %s\n", t)
		}
	}
	for _, a := range result.Actions {
		switch {
		case !a.Valid:
			out.Printf("✗ [%d] %s: %s\n", a.Index, a.Type, a.Error)
		case !a.Declared:
			out.Printf("? [%d] %s: not declared in schema\n", a.Index, a.Type)
		default:
			out.Printf("✓ [%d] %s\n", a.Index, a.Type)
		}
	}
	if result.StateValid != nil {
		if *result.StateValid {
			out.Printf("✓ state\n")
		} else {
			out.Printf("✗ state: %s\n", result.StateError)
		}
	}
	return nil
}
