// Package harness replays trace fixtures and verifies them.
//
// A scenario file (YAML or CUE) names the event ids it uses, lists the
// expected sequence and describes what the system under test delivered as
// a list of steps:
//
//	name: create_window
//	description: window creation sends create then size
//	ids:
//	  WM_CREATE: 0x0001
//	  WM_SIZE: 0x0005
//	expect:
//	  - { id: WM_CREATE, flags: [sent] }
//	  - { id: WM_SIZE, flags: [sent, defwinproc], param_a: 0, optional: true }
//	steps:
//	  - events:
//	      - { id: WM_CREATE, flags: [sent] }
//	  - source: worker
//	    events:
//	      - { id: WM_SIZE, flags: [sent, defwinproc] }
//
// # Delivery
//
// Events on the main source are appended inline. Every other source gets
// its own goroutine, and the Driver waits for each step before starting
// the next, so cross-goroutine delivery is exercised without making the
// order nondeterministic. Posted events wait in a FIFO until a pump step,
// and anything still queued is pumped before the log is drained.
//
// # Golden files
//
// Snapshots are canonical JSON: sorted keys, no whitespace, run id
// omitted. The verify command keeps one per scenario under
// {scenarios}/golden/{name}.golden.
package harness
