package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/seqcheck/internal/canonical"
	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/trace"
)

// Snapshot is the golden form of a run. Run ids are left out so that
// snapshots stay stable across runs.
type Snapshot struct {
	ScenarioName string
	Events       []trace.Event
	Findings     []matcher.Finding
	Passed       bool
}

// NewSnapshot captures a result.
func NewSnapshot(r *Result) Snapshot {
	s := Snapshot{ScenarioName: r.Scenario, Events: r.Events}
	if r.Report != nil {
		s.Findings = r.Report.Findings
		s.Passed = r.Report.Passed
	}
	return s
}

// CanonicalValue implements canonical.Marshaler.
func (s Snapshot) CanonicalValue() any {
	events := make([]any, len(s.Events))
	for i, e := range s.Events {
		ev := map[string]any{
			"id":      e.ID,
			"flags":   e.Flags.Names(),
			"param_a": e.ParamA,
			"param_b": e.ParamB,
		}
		// Caller-defined bits have no names but still tell traces apart.
		if extra := e.Flags &^ trace.Classification; extra != 0 {
			ev["extra_flags"] = uint32(extra)
		}
		events[i] = ev
	}

	findings := make([]any, len(s.Findings))
	for i, f := range s.Findings {
		findings[i] = map[string]any{
			"position": f.Position,
			"kind":     string(f.Kind),
			"message":  f.Message,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"events":        events,
		"findings":      findings,
		"passed":        s.Passed,
	}
}

// Marshal returns the canonical JSON bytes of the snapshot.
func (s Snapshot) Marshal() ([]byte, error) {
	return canonical.Marshal(s)
}

// GoldenPath returns where the golden file for a scenario lives:
// {dir}/golden/{name}.golden.
func GoldenPath(dir, name string) string {
	return filepath.Join(dir, "golden", name+".golden")
}

// CompareGolden reports whether the file at path holds exactly got.
// A missing file is reported as os.ErrNotExist.
func CompareGolden(path string, got []byte) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("golden file %s: %w", path, os.ErrNotExist)
		}
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(want, got), nil
}

// WriteGolden creates or replaces the golden file at path.
func WriteGolden(path string, got []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden dir: %w", err)
	}
	if err := os.WriteFile(path, got, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := Run(ctx, scenario, Options{})
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(result)
	snapshot.ScenarioName = name
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
