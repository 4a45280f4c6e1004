package matcher

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/pattern"
	"github.com/roach88/seqcheck/internal/trace"
)

// Options tune a single verification.
type Options struct {
	// SoftMode marks the whole scenario as a known discrepancy. Every
	// mismatch becomes a diagnostic and ends the comparison; a clean run
	// produces a stale-marker finding.
	SoftMode bool

	// SecondaryChannelEnabled reports whether the secondary notification
	// channel was active. When false, expectations carrying trace.WinEvent
	// are skipped as if optional.
	SecondaryChannelEnabled bool

	// Catalog names ids in messages. May be nil.
	Catalog *trace.Catalog
}

// Drainer is the part of trace.Log that VerifyLog needs.
type Drainer interface {
	DrainAndReset() []trace.Event
}

// Verify aligns actual against expected and reports every mismatch.
//
// The inputs are not modified. A malformed sequence is returned as a
// *pattern.Error before any comparison takes place.
func Verify(expected pattern.Sequence, actual []trace.Event, opts Options) (*Report, error) {
	if err := expected.Validate(); err != nil {
		return nil, err
	}

	a := &alignment{
		expected: expected,
		actual:   actual,
		opts:     opts,
		report:   newReport(),
	}
	a.run()
	return a.report, nil
}

// VerifyLog drains log and verifies the drained events.
//
// The log is drained exactly once even when expected is malformed, so
// events never leak into the next scenario. The drained events are
// returned alongside the report.
func VerifyLog(log Drainer, expected pattern.Sequence, opts Options) (*Report, []trace.Event, error) {
	actual := log.DrainAndReset()
	report, err := Verify(expected, actual, opts)
	if err != nil {
		return nil, actual, err
	}
	return report, actual, nil
}

// alignment holds the state of one Verify call.
type alignment struct {
	expected pattern.Sequence
	actual   []trace.Event
	opts     Options
	report   *Report
}

func (a *alignment) run() {
	i, j := 0, 0

	for !a.expected[i].IsTerminator() && j < len(a.actual) {
		exp := a.expected[i]
		act := a.actual[j]
		a.report.Checks++

		if exp.ID == act.ID {
			mismatches := a.compare(exp, act)
			soft := exp.Soft || a.opts.SoftMode

			if len(mismatches) > 0 && soft {
				for _, msg := range mismatches {
					a.report.add(i, KindDiagnostic, msg)
				}
				a.report.Aborted = true
				a.finish()
				return
			}
			if exp.Soft {
				a.report.add(i, KindStaleMarker,
					fmt.Sprintf("%s: soft marker no longer mismatches", a.name(exp.ID)))
			}
			for _, msg := range mismatches {
				a.report.add(i, KindFailure, msg)
			}
			i++
			j++
			continue
		}

		if a.skippable(exp) {
			i++
			continue
		}

		msg := fmt.Sprintf("expected id %s, got id %s", a.name(exp.ID), a.name(act.ID))
		if a.opts.SoftMode || exp.Soft {
			a.report.add(i, KindDiagnostic, msg)
			a.report.Aborted = true
			a.finish()
			return
		}

		// Greedy resync: consume both sides and keep going.
		a.report.add(i, KindFailure, msg)
		i++
		j++
	}

	a.tail(i, j)
	a.finish()
}

// compare checks classification bits and requested params of a same-id pair.
// It returns one message per failed comparison.
func (a *alignment) compare(exp pattern.Entry, act trace.Event) []string {
	var mismatches []string
	id := a.name(exp.ID)

	for _, bit := range trace.ClassificationBits() {
		a.report.Checks++
		want := exp.Flags.Has(bit)
		got := act.Flags.Has(bit)
		if want == got {
			continue
		}
		state := "clear"
		if want {
			state = "set"
		}
		mismatches = append(mismatches, fmt.Sprintf("%s: flag %s should be %s", id, bit, state))
	}

	if exp.ParamA.Set {
		a.report.Checks++
		if !exp.ParamA.Matches(act.ParamA) {
			mismatches = append(mismatches,
				fmt.Sprintf("%s: param_a expected %d, got %d", id, exp.ParamA.Value, act.ParamA))
		}
	}
	if exp.ParamB.Set {
		a.report.Checks++
		if !exp.ParamB.Matches(act.ParamB) {
			mismatches = append(mismatches,
				fmt.Sprintf("%s: param_b expected %d, got %d", id, exp.ParamB.Value, act.ParamB))
		}
	}

	return mismatches
}

// skippable reports whether an unmatched expectation may be passed over.
func (a *alignment) skippable(exp pattern.Entry) bool {
	if exp.Optional {
		return true
	}
	return !a.opts.SecondaryChannelEnabled && exp.Flags.Has(trace.WinEvent)
}

// tail reports whatever is left on either side once the main loop stops.
func (a *alignment) tail(i, j int) {
	for !a.expected[i].IsTerminator() && a.skippable(a.expected[i]) {
		i++
	}

	remainingExpected := !a.expected[i].IsTerminator()
	remainingActual := j < len(a.actual)
	if !remainingExpected && !remainingActual {
		return
	}

	want := "end of sequence"
	if remainingExpected {
		want = a.name(a.expected[i].ID)
	}
	got := "end of stream"
	if remainingActual {
		got = a.name(a.actual[j].ID)
	}

	kind := KindFailure
	if a.opts.SoftMode || (remainingExpected && a.expected[i].Soft) {
		kind = KindDiagnostic
	}
	a.report.add(i, kind, fmt.Sprintf("sequence incomplete: expected %s, got %s", want, got))
}

// finish settles the verdict and flags soft-mode scenarios that now pass.
func (a *alignment) finish() {
	if a.opts.SoftMode && len(a.report.Diagnostics()) == 0 {
		a.report.add(ScenarioPosition, KindStaleMarker, "soft mode set but scenario matched")
	}
	a.report.Passed = len(a.report.Failures()) == 0
}

func (a *alignment) name(id uint32) string {
	return a.opts.Catalog.Format(id)
}
