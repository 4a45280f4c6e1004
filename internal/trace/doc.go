// Package trace captures the event stream produced by a system under test.
//
// Source adapters translate platform callbacks into Event values and hand
// them to an Appender. The Log is the Appender used by scenarios: a single
// mutex-guarded buffer that records events in arrival order, whichever
// goroutine or nested callback they come from.
//
// # Lifecycle
//
// A scenario owns exactly one Log:
//
//	log := trace.New()
//	drive(log)                   // adapters call log.Append
//	events := log.DrainAndReset() // exactly once per scenario
//	log.Reset()                   // before the next scenario
//
// The Log records arrival order only. It does not reconstruct causality;
// producers that need a causal order must already serialize it.
package trace
