package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_YAML(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/generator_duality.yaml")
	require.NoError(t, err)

	assert.Equal(t, "generator_duality", s.Name)
	assert.Equal(t, "session-generator_duality", s.Session)
	assert.Equal(t, "repo", s.Stub.Label)
	require.Len(t, s.Stub.Rules, 2)
	assert.Equal(t, []any{"<any>*"}, *s.Stub.Rules[0].With)
	require.Len(t, s.Calls, 3)
	assert.Equal(t, []any{"next", map[string]any{"send": "x"}, "drain"}, s.Calls[0].Drive)
	require.Len(t, s.Verify, 11)
	assert.Equal(t, 2, *s.Verify[1].Times)
	assert.True(t, s.Verify[1].Always)
}

func TestLoadScenario_CUE(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/rule_precedence.cue")
	require.NoError(t, err)

	assert.Equal(t, "rule_precedence", s.Name)
	require.Len(t, s.Stub.Rules, 5)
	assert.Nil(t, s.Stub.Rules[0].With, "a rule without with matches anything")
	require.NotNil(t, s.Stub.Rules[1].With)
	assert.Empty(t, *s.Stub.Rules[1].With, "with: [] matches only calls without arguments")
	require.Len(t, s.Calls, 6)
	assert.Equal(t, map[string]any{"flag": true}, s.Calls[4].Named)
	assert.Equal(t, []int{5, 6}, s.Verify[6].Between)
}

func TestLoadScenario_Rejects(t *testing.T) {
	tests := []struct {
		file   string
		errMsg string
	}{
		{"unknown_field.yaml", "field verfy not found"},
		{"bad_check.yaml", `verify[0]: unknown check "invoked"`},
		{"bad_schema.cue", "does not match schema"},
		{"two_answers.yaml", "stub.rules[0].answers[0]: an answer has exactly one of"},
		{"missing.yaml", "failed to read scenario file"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata/invalid", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateScenario(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		errMsg   string
	}{
		{"name required", Scenario{}, "name is required"},
		{"name is a file name", Scenario{Name: "a b"}, "must not contain spaces"},
		{
			"answers required",
			Scenario{Name: "n", Stub: StubConfig{Rules: []RuleConfig{{With: withArgs()}}}},
			"stub.rules[0]: answers list is required",
		},
		{
			"unknown answer",
			Scenario{Name: "n", Stub: StubConfig{Rules: []RuleConfig{{Answers: []map[string]any{{"yields": 1}}}}}},
			`unknown answer "yields"`,
		},
		{
			"unknown drive step",
			Scenario{Name: "n", Calls: []CallStep{{Drive: []any{"rewind"}}}},
			`calls[0].drive[0]: unknown drive step "rewind"`,
		},
		{
			"throw needs a message",
			Scenario{Name: "n", Calls: []CallStep{{Drive: []any{map[string]any{"throw": 1}}}}},
			"throw needs a message",
		},
		{
			"exclusive expect",
			Scenario{Name: "n", Calls: []CallStep{{Expect: map[string]any{"returns": 1, "throws": "x"}}}},
			"returns and throws are exclusive",
		},
		{
			"call out of range",
			Scenario{Name: "n", Verify: []Verification{{Check: CheckCalled, Call: intPtr(0)}}},
			"verify[0]: call 0 is out of range for 0 calls",
		},
		{
			"one cardinality",
			Scenario{Name: "n", Verify: []Verification{{Check: CheckCalled, Once: true, Times: intPtr(1)}}},
			"at most one of",
		},
		{
			"error only for errors",
			Scenario{Name: "n", Verify: []Verification{{Check: CheckCalled, Error: strPtr("boom")}}},
			"error is only valid for threw and received_exception",
		},
		{
			"threw takes no args",
			Scenario{Name: "n", Verify: []Verification{{Check: CheckThrew, Args: []any{"boom"}}}},
			"threw matches on error, not args",
		},
		{
			"produced takes a key and a value",
			Scenario{Name: "n", Verify: []Verification{{Check: CheckProduced, Args: []any{1, 2, 3}}}},
			"produced takes at most 2 args, got 3",
		},
		{
			"between needs two bounds",
			Scenario{Name: "n", Verify: []Verification{{Check: CheckCalled, Between: []int{1}}}},
			"between needs a minimum and a maximum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateScenario(&tt.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadScenarios_Sorted(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"generator_duality", "generator_exceptions", "rule_precedence"}, names)
}

func TestLoadScenarios_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"echo.yaml", "echo.cue"} {
		data, err := os.ReadFile(filepath.Join("testdata/equivalent", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "echo" defined in both`)
}

func TestDigest_FormatIndependent(t *testing.T) {
	fromYAML, err := LoadScenario("testdata/equivalent/echo.yaml")
	require.NoError(t, err)
	fromCUE, err := LoadScenario("testdata/equivalent/echo.cue")
	require.NoError(t, err)

	yamlDigest, err := Digest(fromYAML)
	require.NoError(t, err)
	cueDigest, err := Digest(fromCUE)
	require.NoError(t, err)
	assert.Equal(t, yamlDigest, cueDigest)

	fromCUE.Description = "changed"
	changed, err := Digest(fromCUE)
	require.NoError(t, err)
	assert.NotEqual(t, yamlDigest, changed)
}
