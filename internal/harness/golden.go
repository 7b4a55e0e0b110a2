package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mimic/internal/ir"
)

// MarshalTrace renders a result as canonical JSON lines: a header naming the
// scenario and session, then one line per trace event. Equal histories
// always render to identical bytes.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	var buf bytes.Buffer

	header, err := ir.MarshalCanonical(map[string]any{
		"scenario": scenarioName,
		"session":  result.Session,
	})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, event := range result.Trace {
		line, err := ir.MarshalCanonical(event.canonical())
		if err != nil {
			return nil, fmt.Errorf("trace event %d: %w", event.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// GoldenPath returns where the golden trace of a scenario lives in dir.
func GoldenPath(dir, scenarioName string) string {
	return filepath.Join(dir, scenarioName+".golden")
}

// CompareGolden compares a result's trace with the golden file in dir.
// With update set, the golden file is written instead.
func CompareGolden(dir, scenarioName string, result *Result, update bool) error {
	actual, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	path := GoldenPath(dir, scenarioName)
	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		return os.WriteFile(path, actual, 0o644)
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(expected, actual) {
		return fmt.Errorf("trace of %s does not match %s", scenarioName, path)
	}
	return nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	trace, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, trace)
	return nil
}
