package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one stub-and-verify run.
// The stub is configured first, then the calls are made through a recording
// spy, and finally the verifications are evaluated against the history.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description" json:"description"`

	// Session is the fixed session ID of the run.
	// If empty, defaults to "session-<name>" so traces stay deterministic.
	Session string `yaml:"session,omitempty" json:"session,omitempty"`

	Stub StubConfig `yaml:"stub" json:"stub"`

	// Calls are made in order against the stub.
	Calls []CallStep `yaml:"calls" json:"calls"`

	// Verify is evaluated after every call has been made and driven.
	Verify []Verification `yaml:"verify" json:"verify"`
}

// StubConfig configures the stub under test.
type StubConfig struct {
	Label string       `yaml:"label,omitempty" json:"label,omitempty"`
	Rules []RuleConfig `yaml:"rules" json:"rules"`
}

// RuleConfig is one rule. A nil With matches any arguments; an empty one
// matches only calls without arguments.
type RuleConfig struct {
	With    *[]any           `yaml:"with,omitempty" json:"with,omitempty"`
	Answers []map[string]any `yaml:"answers" json:"answers"`
}

// CallStep is one invocation of the stub.
type CallStep struct {
	// Args are the positional arguments.
	Args []any `yaml:"args,omitempty" json:"args,omitempty"`

	// Named arguments are appended after Args in key order.
	Named map[string]any `yaml:"named,omitempty" json:"named,omitempty"`

	// Drive lists what to do with a returned generator.
	Drive []any `yaml:"drive,omitempty" json:"drive,omitempty"`

	// Expect checks the outcome: "returns" or "throws". For a generator
	// the outcome is its final value after driving.
	Expect map[string]any `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Verification is one cardinality-checked verification.
type Verification struct {
	Check string `yaml:"check" json:"check"`

	// Call selects one call by index. If nil, every call is the subject.
	Call *int `yaml:"call,omitempty" json:"call,omitempty"`

	// Args are the expected values: a key and value for produced, one value
	// for received and returned, the argument list for called_with.
	Args []any `yaml:"args,omitempty" json:"args,omitempty"`

	// Error is the expected error message for threw and received_exception.
	Error *string `yaml:"error,omitempty" json:"error,omitempty"`

	Never   bool  `yaml:"never,omitempty" json:"never,omitempty"`
	Once    bool  `yaml:"once,omitempty" json:"once,omitempty"`
	Twice   bool  `yaml:"twice,omitempty" json:"twice,omitempty"`
	Thrice  bool  `yaml:"thrice,omitempty" json:"thrice,omitempty"`
	Times   *int  `yaml:"times,omitempty" json:"times,omitempty"`
	AtLeast *int  `yaml:"at_least,omitempty" json:"at_least,omitempty"`
	AtMost  *int  `yaml:"at_most,omitempty" json:"at_most,omitempty"`
	Between []int `yaml:"between,omitempty" json:"between,omitempty"`
	Always  bool  `yaml:"always,omitempty" json:"always,omitempty"`

	// Fails expects the verification not to hold.
	Fails bool `yaml:"fails,omitempty" json:"fails,omitempty"`
}

// Verification check names.
const (
	CheckUsed              = "used"
	CheckProduced          = "produced"
	CheckReceived          = "received"
	CheckReceivedException = "received_exception"
	CheckConsumed          = "consumed"
	CheckReturned          = "returned"
	CheckThrew             = "threw"
	CheckCalled            = "called"
	CheckCalledWith        = "called_with"
)

// Answer keys.
const (
	AnswerReturns         = "returns"
	AnswerThrows          = "throws"
	AnswerReturnsArgument = "returns_argument"
	AnswerReturnsSelf     = "returns_self"
	AnswerGenerates       = "generates"
	AnswerSetsArgument    = "sets_argument"
)

var (
	checks = []string{
		CheckUsed, CheckProduced, CheckReceived, CheckReceivedException, CheckConsumed,
		CheckReturned, CheckThrew, CheckCalled, CheckCalledWith,
	}
	answerKeys = []string{
		AnswerReturns, AnswerThrows, AnswerReturnsArgument, AnswerReturnsSelf,
		AnswerGenerates, AnswerSetsArgument,
	}
)

// LoadScenario reads and parses a scenario file. Files ending in .cue are
// compiled and checked against the scenario schema; anything else is read
// as YAML with unknown fields rejected.
func LoadScenario(path string) (*Scenario, error) {
	var (
		scenario *Scenario
		err      error
	)
	if filepath.Ext(path) == ".cue" {
		scenario, err = loadCUE(path)
	} else {
		scenario, err = loadYAML(path)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	if scenario.Session == "" {
		scenario.Session = "session-" + scenario.Name
	}
	return scenario, nil
}

// LoadScenarios loads every .yaml, .yml and .cue scenario in dir, ordered by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml", ".cue":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", s.Name, prev, p)
		}
		seen[s.Name] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func loadYAML(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "verfy:" vs "verify:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain spaces or path separators", s.Name)
	}

	for i, rule := range s.Stub.Rules {
		if len(rule.Answers) == 0 {
			return fmt.Errorf("stub.rules[%d]: answers list is required and must be non-empty", i)
		}
		for j, answer := range rule.Answers {
			if err := validateAnswer(answer); err != nil {
				return fmt.Errorf("stub.rules[%d].answers[%d]: %w", i, j, err)
			}
		}
	}

	for i, c := range s.Calls {
		for j, step := range c.Drive {
			if _, err := parseDriveStep(step); err != nil {
				return fmt.Errorf("calls[%d].drive[%d]: %w", i, j, err)
			}
		}
		for key := range c.Expect {
			if key != AnswerReturns && key != AnswerThrows {
				return fmt.Errorf("calls[%d].expect: unknown key %q", i, key)
			}
		}
		if len(c.Expect) > 1 {
			return fmt.Errorf("calls[%d].expect: returns and throws are exclusive", i)
		}
	}

	for i, v := range s.Verify {
		if err := validateVerification(v, len(s.Calls)); err != nil {
			return fmt.Errorf("verify[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAnswer(answer map[string]any) error {
	if len(answer) != 1 {
		return fmt.Errorf("an answer has exactly one of %s", strings.Join(answerKeys, ", "))
	}
	for key := range answer {
		if !slices.Contains(answerKeys, key) {
			return fmt.Errorf("unknown answer %q", key)
		}
	}
	return nil
}

func validateVerification(v Verification, calls int) error {
	if v.Check == "" {
		return fmt.Errorf("check is required")
	}
	if !slices.Contains(checks, v.Check) {
		return fmt.Errorf("unknown check %q", v.Check)
	}
	if v.Call != nil && (*v.Call < 0 || *v.Call >= calls) {
		return fmt.Errorf("call %d is out of range for %d calls", *v.Call, calls)
	}

	selectors := 0
	for _, set := range []bool{v.Never, v.Once, v.Twice, v.Thrice, v.Times != nil, v.AtLeast != nil, v.AtMost != nil, v.Between != nil} {
		if set {
			selectors++
		}
	}
	if selectors > 1 {
		return fmt.Errorf("at most one of never, once, twice, thrice, times, at_least, at_most and between may be set")
	}
	if v.Between != nil && len(v.Between) != 2 {
		return fmt.Errorf("between needs a minimum and a maximum")
	}

	if v.Check == CheckThrew || v.Check == CheckReceivedException {
		if v.Args != nil {
			return fmt.Errorf("%s matches on error, not args", v.Check)
		}
		return nil
	}
	if v.Error != nil {
		return fmt.Errorf("error is only valid for threw and received_exception")
	}

	maxArgs := -1
	switch v.Check {
	case CheckUsed, CheckConsumed, CheckCalled:
		maxArgs = 0
	case CheckReceived, CheckReturned:
		maxArgs = 1
	case CheckProduced:
		maxArgs = 2
	}
	if maxArgs >= 0 && len(v.Args) > maxArgs {
		return fmt.Errorf("%s takes at most %d args, got %d", v.Check, maxArgs, len(v.Args))
	}
	return nil
}
