package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/seqcheck/internal/logging"
	"github.com/roach88/seqcheck/internal/trace"
)

// ErrDriverClosed is returned by Deliver after Close.
var ErrDriverClosed = errors.New("driver closed")

// Driver replays planned steps into a trace sink the way a platform would
// deliver them: inline on the main source, on a dedicated goroutine for
// every other source, and through a FIFO for posted events.
//
// A Driver is used from a single goroutine. Sources other than main run
// concurrently with it, but Deliver waits for each step to finish so the
// resulting order is reproducible.
type Driver struct {
	sink   trace.Appender
	steps  atomic.Int64 // step sequence numbers, starting at 1
	posted *postQueue
	logger *slog.Logger

	workers map[string]*source
	wg      sync.WaitGroup
	closed  bool
}

type source struct {
	name string
	jobs chan job
}

type job struct {
	events []trace.Event
	done   chan struct{}
}

// NewDriver returns a driver appending to sink.
func NewDriver(sink trace.Appender, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Driver{
		sink:    sink,
		posted:  newPostQueue(),
		logger:  logger,
		workers: make(map[string]*source),
	}
}

// Deliver performs one step and returns once every event it produced has
// been appended to the sink. Posted events are only queued.
func (d *Driver) Deliver(ctx context.Context, step PlannedStep) error {
	if d.closed {
		return ErrDriverClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seq := d.steps.Add(1)
	d.logger.Debug("delivering step",
		"seq", seq,
		"kind", step.Kind.String(),
		"source", step.Source,
		"events", len(step.Events),
	)

	switch step.Kind {
	case StepSend:
		if step.Source == "" || step.Source == MainSource {
			for _, e := range step.Events {
				d.sink.Append(e)
			}
			return nil
		}
		return d.sendOn(ctx, step.Source, step.Events)
	case StepPost:
		for _, e := range step.Events {
			if !d.posted.Enqueue(e) {
				return ErrDriverClosed
			}
		}
		return nil
	case StepPump:
		d.Pump()
		return nil
	default:
		return fmt.Errorf("step %d: unknown kind %d", seq, step.Kind)
	}
}

// Pump delivers every queued posted event on the main source, in the order
// they were posted. It returns how many events were delivered.
func (d *Driver) Pump() int {
	n := 0
	for {
		e, ok := d.posted.TryDequeue()
		if !ok {
			return n
		}
		d.sink.Append(e)
		n++
	}
}

// Pending returns the number of posted events not yet pumped.
func (d *Driver) Pending() int {
	return d.posted.Len()
}

// Steps returns how many steps have been delivered.
func (d *Driver) Steps() int64 {
	return d.steps.Load()
}

// Quiesce flushes posted events so the sink holds everything the run
// produced. Call it before draining the sink.
func (d *Driver) Quiesce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := d.Pump(); n > 0 {
		d.logger.Debug("pumped remaining posted events", "events", n)
	}
	return nil
}

// Close stops all source goroutines and waits for them to exit.
// It is safe to call more than once.
func (d *Driver) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.posted.Close()
	for _, s := range d.workers {
		close(s.jobs)
	}
	d.wg.Wait()
}

func (d *Driver) sendOn(ctx context.Context, name string, events []trace.Event) error {
	s := d.source(name)
	j := job{events: events, done: make(chan struct{})}

	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) source(name string) *source {
	if s, ok := d.workers[name]; ok {
		return s
	}

	s := &source{name: name, jobs: make(chan job)}
	d.workers[name] = s
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for j := range s.jobs {
			for _, e := range j.events {
				d.sink.Append(e)
			}
			close(j.done)
		}
	}()
	d.logger.Debug("started source", "source", name)
	return s
}
