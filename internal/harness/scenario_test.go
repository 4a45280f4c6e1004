package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seqcheck/internal/pattern"
	"github.com/roach88/seqcheck/internal/trace"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_YAML(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/create_window.yaml")
	require.NoError(t, err)

	assert.Equal(t, "create_window", scenario.Name)
	assert.Len(t, scenario.Expect, 3)
	assert.Len(t, scenario.Steps, 3)
	assert.Equal(t, IDRef("WM_SIZE"), scenario.Expect[1].ID)
	require.NotNil(t, scenario.Expect[1].ParamA)
	assert.Equal(t, int64(0), *scenario.Expect[1].ParamA)
	assert.Nil(t, scenario.Expect[1].ParamB)
	assert.True(t, scenario.Expect[2].Optional)
	assert.Equal(t, "worker", scenario.Steps[1].Source)
}

func TestLoadScenario_CUE(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/paint_cycle.cue")
	require.NoError(t, err)

	assert.Equal(t, "paint_cycle", scenario.Name)
	assert.Equal(t, uint32(133), scenario.IDs["WM_NCPAINT"])
	require.Len(t, scenario.Steps, 3)
	assert.True(t, scenario.Steps[1].Pump)
	assert.Equal(t, IDRef("133"), scenario.Steps[2].Events[0].ID)
}

func TestLoadScenario_CUERejectsUnknownFlag(t *testing.T) {
	path := writeScenario(t, "bad.cue", `
name:        "bad"
description: "bad flag"
expect: [{id: 5, flags: ["loud"]}]
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
}

func TestLoadScenario_CUERejectsUnknownField(t *testing.T) {
	path := writeScenario(t, "typo.cue", `
name:        "typo"
description: "misspelled key"
expects: []
expect: []
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field "expects"`)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnsupportedExtension(t *testing.T) {
	path := writeScenario(t, "scenario.json", `{}`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scenario format")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := writeScenario(t, "typo.yaml", `
name: typo
description: misspelled key
expects: []
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: x\nexpect: []\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nexpect: []\n",
			wantErr: "description is required",
		},
		{
			name:    "missing expect",
			content: "name: x\ndescription: x\n",
			wantErr: "expect list is required",
		},
		{
			name:    "unknown flag",
			content: "name: x\ndescription: x\nexpect:\n  - { id: 5, flags: [loud] }\n",
			wantErr: `unknown flag "loud"`,
		},
		{
			name:    "unknown id name",
			content: "name: x\ndescription: x\nexpect:\n  - { id: WM_NOPE }\n",
			wantErr: `unknown id "WM_NOPE"`,
		},
		{
			name:    "terminator id",
			content: "name: x\ndescription: x\nexpect:\n  - { id: 0 }\n",
			wantErr: "reserved for the terminator",
		},
		{
			name:    "empty step",
			content: "name: x\ndescription: x\nexpect: []\nsteps:\n  - source: worker\n",
			wantErr: "exactly one of events, post or pump",
		},
		{
			name:    "two actions in one step",
			content: "name: x\ndescription: x\nexpect: []\nsteps:\n  - pump: true\n    post: [{ id: 1 }]\n",
			wantErr: "exactly one of events, post or pump",
		},
		{
			name:    "source on post",
			content: "name: x\ndescription: x\nexpect: []\nsteps:\n  - source: worker\n    post: [{ id: 1 }]\n",
			wantErr: "source only applies to events",
		},
		{
			name:    "duplicate catalog ids",
			content: "name: x\ndescription: x\nids: { A: 1, B: 1 }\nexpect: []\n",
			wantErr: "share id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, "scenario.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_EmptyExpectAllowed(t *testing.T) {
	path := writeScenario(t, "quiet.yaml", "name: quiet\ndescription: nothing happens\nexpect: []\n")
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Empty(t, scenario.Expect)
}

func TestScenario_Compile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/create_window.yaml")
	require.NoError(t, err)

	plan, err := scenario.Compile()
	require.NoError(t, err)

	assert.Equal(t, pattern.Seq(
		pattern.Entry{ID: 1, Flags: trace.Sent},
		pattern.Entry{ID: 5, Flags: trace.Sent, ParamA: pattern.Want(0)},
		pattern.Entry{ID: 15, Flags: trace.Posted, Optional: true},
	), plan.Expected)

	require.Len(t, plan.Steps, 3)
	assert.Equal(t, StepSend, plan.Steps[0].Kind)
	assert.Equal(t, MainSource, plan.Steps[0].Source)
	assert.Equal(t, StepSend, plan.Steps[1].Kind)
	assert.Equal(t, "worker", plan.Steps[1].Source)
	assert.Equal(t, []trace.Event{{ID: 5, Flags: trace.Sent, ParamB: 10}}, plan.Steps[1].Events)
	assert.Equal(t, StepPost, plan.Steps[2].Kind)

	assert.True(t, plan.Options.SecondaryChannelEnabled)
	assert.False(t, plan.Options.SoftMode)
	assert.Equal(t, "WM_PAINT (0x000f)", plan.Catalog.Format(15))
}

func TestScenario_CompileSecondaryChannelOff(t *testing.T) {
	off := false
	scenario := &Scenario{
		Name:             "x",
		Description:      "x",
		Soft:             true,
		SecondaryChannel: &off,
		Expect:           []ExpectEntry{{ID: "0x10", Flags: []string{"winevent"}}},
	}
	plan, err := scenario.Compile()
	require.NoError(t, err)

	assert.False(t, plan.Options.SecondaryChannelEnabled)
	assert.True(t, plan.Options.SoftMode)
	assert.Equal(t, uint32(0x10), plan.Expected[0].ID)
}

func TestIDRef_UnmarshalJSON(t *testing.T) {
	var r IDRef
	require.NoError(t, r.UnmarshalJSON([]byte(`"WM_SIZE"`)))
	assert.Equal(t, IDRef("WM_SIZE"), r)

	require.NoError(t, r.UnmarshalJSON([]byte(`42`)))
	assert.Equal(t, IDRef("42"), r)

	assert.Error(t, r.UnmarshalJSON([]byte(`-1`)))
	assert.Error(t, r.UnmarshalJSON([]byte(`1.5`)))
	assert.Error(t, r.UnmarshalJSON([]byte(`true`)))
}

func TestStepKind_String(t *testing.T) {
	assert.Equal(t, "send", StepSend.String())
	assert.Equal(t, "post", StepPost.String())
	assert.Equal(t, "pump", StepPump.String())
	assert.Equal(t, "unknown", StepKind(0).String())
}
