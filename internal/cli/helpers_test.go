package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const createWindowYAML = `name: create_window
description: create then size from a worker
ids:
  WM_CREATE: 1
  WM_SIZE: 5
expect:
  - { id: WM_CREATE, flags: [sent] }
  - { id: WM_SIZE, flags: [sent], param_a: 3 }
steps:
  - events:
      - { id: WM_CREATE, flags: [sent] }
  - source: worker
    events:
      - { id: WM_SIZE, flags: [sent], param_a: 3 }
`

const sizeMismatchYAML = `name: size_mismatch
description: size carries the wrong width
ids:
  WM_SIZE: 5
expect:
  - { id: WM_SIZE, flags: [sent], param_a: 3 }
steps:
  - events:
      - { id: WM_SIZE, flags: [sent], param_a: 4 }
`

const staleMarkerYAML = `name: stale_marker
description: soft entry that now matches
expect:
  - { id: 5, flags: [sent], soft: true }
steps:
  - events:
      - { id: 5, flags: [sent] }
`

const badFlagYAML = `name: bad_flag
description: flag name typo
expect:
  - { id: 5, flags: [snet] }
`

// writeScenarios creates a scenarios directory holding the given files.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// testRoot returns root options with environment fallbacks cleared.
func testRoot(t *testing.T, format string) *RootOptions {
	t.Helper()
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvFormat, "")
	t.Setenv(EnvLogLevel, "")
	return &RootOptions{Format: format}
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
