package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/seqcheck/internal/matcher"
	"github.com/roach88/seqcheck/internal/pattern"
	"github.com/roach88/seqcheck/internal/trace"
)

// MainSource is the producer that delivers inline on the driver goroutine.
const MainSource = "main"

// Scenario is one trace fixture: what the system under test delivered and
// what it should have delivered.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Soft marks the whole scenario as a known discrepancy.
	Soft bool `yaml:"soft,omitempty" json:"soft,omitempty"`

	// SecondaryChannel enables secondary-channel (winevent) expectations.
	// Defaults to true when omitted.
	SecondaryChannel *bool `yaml:"secondary_channel,omitempty" json:"secondary_channel,omitempty"`

	// RunID pins the run identifier, for deterministic golden output.
	RunID string `yaml:"run_id,omitempty" json:"run_id,omitempty"`

	// IDs names event ids so entries can refer to them symbolically.
	IDs map[string]uint32 `yaml:"ids,omitempty" json:"ids,omitempty"`

	// Expect is the expected sequence, without terminator. An empty list
	// asserts that nothing was delivered.
	Expect []ExpectEntry `yaml:"expect" json:"expect"`

	// Steps replay what the system under test delivered.
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// ExpectEntry is the fixture form of pattern.Entry.
type ExpectEntry struct {
	ID       IDRef    `yaml:"id" json:"id"`
	Flags    []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	ParamA   *int64   `yaml:"param_a,omitempty" json:"param_a,omitempty"`
	ParamB   *int64   `yaml:"param_b,omitempty" json:"param_b,omitempty"`
	Optional bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Soft     bool     `yaml:"soft,omitempty" json:"soft,omitempty"`
}

// EventSpec is the fixture form of trace.Event.
type EventSpec struct {
	ID     IDRef    `yaml:"id" json:"id"`
	Flags  []string `yaml:"flags,omitempty" json:"flags,omitempty"`
	ParamA int64    `yaml:"param_a,omitempty" json:"param_a,omitempty"`
	ParamB int64    `yaml:"param_b,omitempty" json:"param_b,omitempty"`
}

// Step is one delivery action. Exactly one of Events, Post or Pump is set.
type Step struct {
	// Source names the producer for Events. Empty means MainSource; any
	// other name runs on its own goroutine.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`

	// Events are delivered synchronously by Source.
	Events []EventSpec `yaml:"events,omitempty" json:"events,omitempty"`

	// Post queues events for later asynchronous delivery.
	Post []EventSpec `yaml:"post,omitempty" json:"post,omitempty"`

	// Pump delivers everything queued so far, in FIFO order.
	Pump bool `yaml:"pump,omitempty" json:"pump,omitempty"`
}

// IDRef is an id as written in a fixture: a catalog name, a decimal or a
// 0x-prefixed number.
type IDRef string

// UnmarshalYAML accepts any scalar.
func (r *IDRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: id must be a name or a number", node.Line)
	}
	*r = IDRef(node.Value)
	return nil
}

// UnmarshalJSON accepts a string or an integer.
func (r *IDRef) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*r = IDRef(val)
	case json.Number:
		if _, err := strconv.ParseUint(val.String(), 10, 32); err != nil {
			return fmt.Errorf("id %s: %w", val, err)
		}
		*r = IDRef(val.String())
	default:
		return fmt.Errorf("id must be a name or a number, got %s", data)
	}
	return nil
}

// LoadScenario reads a scenario from a .yaml, .yml or .cue file.
// Unknown fields, unknown flags and unknown id names are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario *Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		scenario, err = parseYAML(data)
	case ".cue":
		scenario, err = parseCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

func parseYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "expects:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and compiles the scenario once
// so that bad flags and ids surface at load time.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Expect == nil {
		return fmt.Errorf("expect list is required (use [] to expect no events)")
	}

	for i, step := range s.Steps {
		set := 0
		if len(step.Events) > 0 {
			set++
		}
		if len(step.Post) > 0 {
			set++
		}
		if step.Pump {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of events, post or pump is required", i)
		}
		if step.Source != "" && len(step.Events) == 0 {
			return fmt.Errorf("steps[%d]: source only applies to events", i)
		}
	}

	_, err := s.Compile()
	return err
}

// StepKind distinguishes planned delivery actions.
type StepKind int

const (
	// StepSend delivers events synchronously on a source.
	StepSend StepKind = iota + 1
	// StepPost queues events.
	StepPost
	// StepPump flushes the queue.
	StepPump
)

func (k StepKind) String() string {
	switch k {
	case StepSend:
		return "send"
	case StepPost:
		return "post"
	case StepPump:
		return "pump"
	default:
		return "unknown"
	}
}

// PlannedStep is a Step with ids and flags resolved.
type PlannedStep struct {
	Kind   StepKind
	Source string
	Events []trace.Event
}

// Plan is a compiled scenario, ready to drive and verify.
type Plan struct {
	Catalog  *trace.Catalog
	Expected pattern.Sequence
	Steps    []PlannedStep
	Options  matcher.Options
}

// Compile resolves names and flags into engine types.
func (s *Scenario) Compile() (*Plan, error) {
	catalog, err := trace.NewCatalog(s.IDs)
	if err != nil {
		return nil, fmt.Errorf("ids: %w", err)
	}

	entries := make([]pattern.Entry, 0, len(s.Expect))
	for i, e := range s.Expect {
		entry, err := e.compile(catalog)
		if err != nil {
			return nil, fmt.Errorf("expect[%d]: %w", i, err)
		}
		entries = append(entries, entry)
	}

	steps := make([]PlannedStep, 0, len(s.Steps))
	for i, st := range s.Steps {
		planned := PlannedStep{Kind: StepPump}
		specs := st.Events
		switch {
		case len(st.Events) > 0:
			planned.Kind = StepSend
			planned.Source = st.Source
			if planned.Source == "" {
				planned.Source = MainSource
			}
		case len(st.Post) > 0:
			planned.Kind = StepPost
			specs = st.Post
		}
		for j, spec := range specs {
			ev, err := spec.compile(catalog)
			if err != nil {
				return nil, fmt.Errorf("steps[%d].events[%d]: %w", i, j, err)
			}
			planned.Events = append(planned.Events, ev)
		}
		steps = append(steps, planned)
	}

	secondary := true
	if s.SecondaryChannel != nil {
		secondary = *s.SecondaryChannel
	}

	return &Plan{
		Catalog:  catalog,
		Expected: pattern.Seq(entries...),
		Steps:    steps,
		Options: matcher.Options{
			SoftMode:                s.Soft,
			SecondaryChannelEnabled: secondary,
			Catalog:                 catalog,
		},
	}, nil
}

func (e ExpectEntry) compile(catalog *trace.Catalog) (pattern.Entry, error) {
	id, err := resolveID(catalog, e.ID)
	if err != nil {
		return pattern.Entry{}, err
	}
	flags, err := trace.ParseFlags(e.Flags)
	if err != nil {
		return pattern.Entry{}, err
	}

	entry := pattern.Entry{ID: id, Flags: flags, Optional: e.Optional, Soft: e.Soft}
	if e.ParamA != nil {
		entry.ParamA = pattern.Want(*e.ParamA)
	}
	if e.ParamB != nil {
		entry.ParamB = pattern.Want(*e.ParamB)
	}
	return entry, nil
}

func (e EventSpec) compile(catalog *trace.Catalog) (trace.Event, error) {
	id, err := resolveID(catalog, e.ID)
	if err != nil {
		return trace.Event{}, err
	}
	flags, err := trace.ParseFlags(e.Flags)
	if err != nil {
		return trace.Event{}, err
	}
	return trace.Event{ID: id, Flags: flags, ParamA: e.ParamA, ParamB: e.ParamB}, nil
}

func resolveID(catalog *trace.Catalog, ref IDRef) (uint32, error) {
	id, err := catalog.Resolve(string(ref))
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("id 0 is reserved for the terminator")
	}
	return id, nil
}
