package harness

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// scenarioSchema constrains CUE fixtures before they are decoded. YAML
// fixtures get the same checks from validateScenario after decoding.
const scenarioSchema = `
#Flag: "sent" | "posted" | "hook" | "winevent" | "parent" | "defwinproc" | "beginpaint"
#ID:   string | int

#Expect: {
	id:        #ID
	flags?:    [...#Flag]
	param_a?:  int
	param_b?:  int
	optional?: bool
	soft?:     bool
}

#Event: {
	id:       #ID
	flags?:   [...#Flag]
	param_a?: int
	param_b?: int
}

#Step: {
	source?: string
	events?: [...#Event]
	post?:   [...#Event]
	pump?:   bool
}

name:               string
description:        string
soft?:              bool
secondary_channel?: bool
run_id?:            string
ids?: [string]: int
expect: [...#Expect]
steps?: [...#Step]
`

// scenarioFields are the top-level labels a CUE fixture may define.
var scenarioFields = map[string]bool{
	"name": true, "description": true, "soft": true, "secondary_channel": true,
	"run_id": true, "ids": true, "expect": true, "steps": true,
}

// parseCUE compiles a CUE fixture, unifies it with the scenario schema and
// decodes the concrete result into a Scenario.
func parseCUE(path string, data []byte) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema, cue.Filename("scenario-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	iter, err := file.Fields()
	if err != nil {
		return nil, fmt.Errorf("failed to read CUE fields: %w", err)
	}
	for iter.Next() {
		if label := iter.Selector().String(); !scenarioFields[label] {
			return nil, fmt.Errorf("failed to validate CUE: unknown field %q", label)
		}
	}

	value := schema.Unify(file)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("failed to validate CUE: %w", err)
	}

	var scenario Scenario
	if err := value.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to decode CUE: %w", err)
	}
	return &scenario, nil
}
