package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mimic/internal/harness"
)

// ValidationError reports one scenario file that failed to load.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios []string          `json:"scenarios"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Validate scenarios without running them",
		Long: `Load and check every scenario file in a directory without running it.

CUE scenarios are checked against the scenario schema, YAML scenarios are
decoded strictly. Every file is then checked for known answers, drive
steps, checks and consistent cardinality fields. Names must be unique.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	files, err := findScenarioFiles(scenariosDir, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), scenariosDir)

	result := ValidationResult{Scenarios: []string{}}
	seen := make(map[string]string)
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			result.Errors = append(result.Errors, ValidationError{File: file, Message: err.Error()})
			continue
		}
		if prev, ok := seen[scenario.Name]; ok {
			result.Errors = append(result.Errors, ValidationError{
				File:    file,
				Message: fmt.Sprintf("scenario %q already defined in %s", scenario.Name, prev),
			})
			continue
		}
		seen[scenario.Name] = file
		formatter.VerboseLog("Validated scenario: %s", scenario.Name)
		result.Scenarios = append(result.Scenarios, scenario.Name)
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		message := fmt.Sprintf("%d scenario file(s) invalid", len(result.Errors))
		if opts.Format == "json" {
			if err := formatter.Error(ErrCodeInvalid, message, result.Errors); err != nil {
				return err
			}
		} else {
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "✗ %s\n  %s\n", e.File, e.Message)
			}
		}
		return NewExitError(ExitFailure, message)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	for _, name := range result.Scenarios {
		fmt.Fprintf(formatter.Writer, "✓ %s\n", name)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d scenario(s) valid\n", len(result.Scenarios))
	return nil
}
