// Package queue serializes engine calls from independent callers. Units run
// strictly in submission order with at most one in flight, which is what the
// single-instance engine requires.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rendis/diagrun/internal/report"
)

// Op is one enqueued asynchronous action. It is executed exactly once and
// never retried.
type Op func(ctx context.Context) (any, error)

type outcome struct {
	value any
	err   error
}

// Pending is the caller's handle to a submitted unit's eventual result.
type Pending struct {
	done chan outcome
}

// Wait blocks until the unit has executed and returns its result. Cancelling
// ctx abandons the wait but does not dequeue the unit: once submitted, a unit
// always eventually executes.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case out := <-p.done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type unit struct {
	ctx  context.Context
	op   Op
	done chan outcome
}

// Queue is a FIFO scheduler with a single-flight run loop. The loop starts on
// first submission, drains the pending sequence in order, and exits when the
// sequence is empty; a later submission restarts it. Safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []*unit
	running bool

	logger *slog.Logger
	hook   report.Hook
}

// New creates a Queue. hook, when non-nil, is invoked with every unit failure
// before the submitter observes it.
func New(logger *slog.Logger, hook report.Hook) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{logger: logger, hook: hook}
}

// Submit appends op to the pending sequence and starts the run loop if it is
// not already running. The submitter's ctx is the one the op executes under;
// cancelling it does not remove the unit from the queue.
func (q *Queue) Submit(ctx context.Context, op Op) *Pending {
	u := &unit{ctx: ctx, op: op, done: make(chan outcome, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, u)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.loop()
	}
	return &Pending{done: u.done}
}

// Len reports the number of units not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// loop executes pending units one at a time until the sequence drains.
// A unit's failure is delivered to its own submitter and logged here; it
// never stops the loop or affects later units.
func (q *Queue) loop() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		u := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		value, err := q.execute(u)
		if err != nil {
			q.logger.Error("queued operation failed", slog.String("error", err.Error()))
			if q.hook != nil {
				q.hook(err, "")
			}
		}
		// done is buffered; delivery never blocks the loop on a slow caller.
		u.done <- outcome{value: value, err: err}
	}
}

func (q *Queue) execute(u *unit) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in queued operation: %v", r)
		}
	}()
	return u.op(u.ctx)
}
