// Package pattern describes the expected side of a trace comparison.
//
// A Sequence is a list of Entry values closed by the Terminator (id 0).
// Build one with Seq so the terminator is never forgotten:
//
//	want := pattern.Seq(
//		pattern.Entry{ID: wmCreate, Flags: trace.Sent},
//		pattern.Entry{ID: wmSize, Flags: trace.Sent, ParamA: pattern.Want(0), Optional: true},
//	)
package pattern

import (
	"fmt"

	"github.com/roach88/seqcheck/internal/trace"
)

// Param is an optional expected parameter value.
// The zero Param is a wildcard.
type Param struct {
	Set   bool
	Value int64
}

// Want returns a Param that must equal v.
func Want(v int64) Param {
	return Param{Set: true, Value: v}
}

// Matches reports whether actual satisfies p.
func (p Param) Matches(actual int64) bool {
	return !p.Set || p.Value == actual
}

// String renders the param as its value or "*".
func (p Param) String() string {
	if !p.Set {
		return "*"
	}
	return fmt.Sprintf("%d", p.Value)
}

// Entry is one expected occurrence plus its match policy.
type Entry struct {
	// ID is the expected event id. 0 is reserved for the Terminator.
	ID uint32

	// Flags are the expected origin flags. Every classification bit is
	// compared, so an unset bit here means the event must not carry it.
	Flags trace.Flags

	ParamA Param
	ParamB Param

	// Optional entries may be absent from the actual stream.
	Optional bool

	// Soft marks a known discrepancy. A mismatch here is a diagnostic and
	// ends the comparison; a match is reported as a stale marker.
	Soft bool
}

// IsTerminator reports whether e closes a sequence.
func (e Entry) IsTerminator() bool {
	return e.ID == 0
}

// String renders the entry for diagnostics.
func (e Entry) String() string {
	s := fmt.Sprintf("%s %s a=%s b=%s", trace.FormatID(e.ID), e.Flags, e.ParamA, e.ParamB)
	if e.Optional {
		s += " optional"
	}
	if e.Soft {
		s += " soft"
	}
	return s
}

// Terminator is the sentinel entry that ends every Sequence.
var Terminator = Entry{}

// Sequence is an ordered list of expectations ending with Terminator.
type Sequence []Entry

// Seq returns a new Sequence holding entries followed by Terminator.
func Seq(entries ...Entry) Sequence {
	s := make(Sequence, 0, len(entries)+1)
	s = append(s, entries...)
	return append(s, Terminator)
}

// Validate checks that the terminator appears exactly once, at the end.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return &Error{Position: 0, Reason: "missing terminator"}
	}
	for i, e := range s[:len(s)-1] {
		if e.IsTerminator() {
			return &Error{Position: i, Reason: "terminator before end of sequence"}
		}
	}
	if !s[len(s)-1].IsTerminator() {
		return &Error{Position: len(s), Reason: "missing terminator"}
	}
	return nil
}

// Error reports a malformed Sequence. It is a test-authoring bug and callers
// should stop rather than try to recover.
type Error struct {
	Position int
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("malformed pattern at entry %d: %s", e.Position, e.Reason)
}
