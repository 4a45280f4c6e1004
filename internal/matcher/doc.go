// Package matcher judges a captured event stream against an expected pattern.
//
// Verify walks the expected sequence and the actual events with two
// pointers. Matching ids are compared field by field (every classification
// flag bit, plus any params the entry asks for), and each failed comparison
// becomes its own Finding so one run surfaces as much as possible.
//
// # Match policy
//
//   - Optional entries, and secondary-channel entries when that channel is
//     disabled, are skipped when they do not match.
//   - Soft entries, and every entry in soft mode, turn a mismatch into a
//     diagnostic and stop the comparison. A soft marker that matches is
//     reported as stale.
//   - Any other mismatch is a failure. Both pointers advance (greedy
//     resynchronization), so a single stray event can cascade into several
//     failures; there is no lookahead.
//   - Leftovers on either side after alignment are reported once as an
//     incomplete sequence.
//
// Verify has no side effects. VerifyLog drains a trace.Log first and is the
// form scenario drivers use.
package matcher
