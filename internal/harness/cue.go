package harness

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE []byte

// loadCUE compiles a CUE scenario, unifies it with #Scenario, and decodes
// the concrete result. Numbers are kept as json.Number until the values are
// normalized, so integers never pass through float64.
func loadCUE(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("building scenario schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE %s: %w", path, err)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("scenario %s does not match schema: %w", path, err)
	}

	exported, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting CUE %s: %w", path, err)
	}

	var scenario Scenario
	decoder := json.NewDecoder(bytes.NewReader(exported))
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("decoding CUE %s: %w", path, err)
	}
	return &scenario, nil
}
