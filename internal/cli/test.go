package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/flux/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name glob
	Golden string // golden directory
	Update bool   // regenerate golden files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run YAML scenarios against the example apps, checking step outcomes and
assertions. With --golden, each scenario's trace is also compared with
<golden>/<name>.golden; --update rewrites those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios, etc.)

Examples:
  flux test ./scenarios
  flux test ./scenarios --filter "todos_*"
  flux test ./scenarios --golden ./golden --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run scenarios whose name matches this glob")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden traces")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	if _, err := os.Stat(dir); err != nil {
		return WrapExitError(ExitCommandError, "scenarios directory not found", err)
	}
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, s.Name); !ok {
				continue
			}
		}
		out.VerboseLog("running %s", s.Name)

		sr, err := runScenario(s, opts, harness.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", s.Name), err)
		}
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := outputTests(out, result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func runScenario(s *harness.Scenario, opts *TestOptions, runOpts ...harness.Option) (ScenarioResult, error) {
	res, err := harness.Run(s, runOpts...)
	if err != nil {
		return ScenarioResult{}, err
	}

	if opts.Golden != "" {
		if msg, err := checkGolden(opts, s.Name, res); err != nil {
			return ScenarioResult{}, err
		} else if msg != "" {
			res.AddError(msg)
		}
	}
	return ScenarioResult{Name: s.Name, Pass: res.Pass, Errors: res.Errors}, nil
}

// checkGolden compares (or with --update writes) the scenario's golden
// file. A non-empty message is a comparison failure.
func checkGolden(opts *TestOptions, name string, res *harness.Result) (string, error) {
	snapshot, err := res.Snapshot()
	if err != nil {
		return "", err
	}
	path := filepath.Join(opts.Golden, name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0o755); err != nil {
			return "", err
		}
		return "", os.WriteFile(path, snapshot, 0o644)
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Sprintf("golden file %s not found (run with --update)", path), nil
	}
	if err != nil {
		return "", err
	}
	if !bytes.Equal(bytes.TrimSpace(want), snapshot) {
		return fmt.Sprintf("trace differs from golden file %s\n  want: %s\n  got:  %s", path, bytes.TrimSpace(want), snapshot), nil
	}
	return "", nil
}

func outputTests(out *OutputFormatter, result TestResult) error {
	if out.JSON() {
		var cliErr *CLIError
		if result.Failed > 0 {
			cliErr = &CLIError{Code: CodeScenario, Message: fmt.Sprintf("%d scenario(s) failed", result.Failed)}
		}
		return out.Respond(result, cliErr)
	}

	if result.Total == 0 {
		out.Printf("No scenarios found.\n")
		return nil
	}
	for _, s := range result.Scenarios {
		if s.Pass {
			out.Printf("✓ %s\n", s.Name)
			continue
		}
		out.Printf("✗ %s\n", s.Name)
		for _, e := range s.Errors {
			out.Printf("    %s\n", e)
		}
	}
	out.Printf("\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return nil
}
