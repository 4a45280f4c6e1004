package trace

import (
	"fmt"
	"strings"
)

// Flags records how an event reached the observer.
//
// The low seven bits are origin classifications understood by the matcher.
// Higher bits are free for callers and are never compared.
type Flags uint32

const (
	// Sent marks synchronous delivery (the caller blocked until handled).
	Sent Flags = 1 << iota
	// Posted marks asynchronous delivery through a queue.
	Posted
	// Hook marks events observed through a subscriber callback.
	Hook
	// WinEvent marks events from the secondary notification channel.
	WinEvent
	// Parent marks events targeting the secondary (parent) window.
	Parent
	// DefWinProc marks events produced by the default handler.
	DefWinProc
	// BeginPaint marks events produced inside a repaint scope.
	BeginPaint
)

// Classification is the set of bits the matcher always compares.
const Classification = Sent | Posted | Hook | WinEvent | Parent | DefWinProc | BeginPaint

// flagNames lists classification bits in the order they are rendered.
var flagNames = []struct {
	flag Flags
	name string
}{
	{Sent, "sent"},
	{Posted, "posted"},
	{Hook, "hook"},
	{WinEvent, "winevent"},
	{Parent, "parent"},
	{DefWinProc, "defwinproc"},
	{BeginPaint, "beginpaint"},
}

// ClassificationBits returns each classification bit individually, in render order.
func ClassificationBits() []Flags {
	bits := make([]Flags, len(flagNames))
	for i, fn := range flagNames {
		bits[i] = fn.flag
	}
	return bits
}

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// String renders the set as "sent|hook". Unknown bits render as hex.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Names returns the names of the classification bits set in f.
func (f Flags) Names() []string {
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

// ParseFlag converts a single flag name to its bit. Names are case-insensitive.
func ParseFlag(name string) (Flags, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, fn := range flagNames {
		if fn.name == n {
			return fn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown flag %q", name)
}

// ParseFlags combines a list of flag names into a set.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		bit, err := ParseFlag(name)
		if err != nil {
			return 0, err
		}
		f |= bit
	}
	return f, nil
}

// Event is one observed occurrence.
//
// Events are values: source adapters build one at the moment of observation
// and the Log stores a copy.
type Event struct {
	ID     uint32 `json:"id"`
	Flags  Flags  `json:"flags"`
	ParamA int64  `json:"param_a"`
	ParamB int64  `json:"param_b"`
}

// String renders the event with hex id, e.g. "0x0005 sent a=0 b=0".
func (e Event) String() string {
	return fmt.Sprintf("%s %s a=%d b=%d", FormatID(e.ID), e.Flags, e.ParamA, e.ParamB)
}

// FormatID renders an id the way diagnostics print it when no catalog is available.
func FormatID(id uint32) string {
	return fmt.Sprintf("0x%04x", id)
}
