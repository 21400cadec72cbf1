package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/logicproc/sim"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("sim worker stopped")

// simRequest represents a unit of work to be executed on the sim goroutine.
type simRequest struct {
	fn   func(*sim.Sim) any
	done chan simResult
}

// simResult holds the return value from a sim operation.
type simResult struct {
	value any
	err   error
}

// Worker serializes all sim access through a single goroutine.
// Entities and the grid are not safe for concurrent use; every handler
// goes through the worker, and so does the tick loop.
type Worker struct {
	sim      *sim.Sim
	interval time.Duration
	requests chan simRequest
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine. A
// positive tickRate also advances the sim that many ticks per second.
func NewWorker(s *sim.Sim, tickRate float64) *Worker {
	w := &Worker{
		sim:      s,
		requests: make(chan simRequest),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if tickRate > 0 {
		w.interval = time.Duration(float64(time.Second) / tickRate)
	}
	go w.loop()
	return w
}

// loop processes requests and ticks sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	defer close(w.stopped)

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-tick:
			w.execute(func(s *sim.Sim) any {
				s.Tick(1)
				return nil
			})
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the sim, recovering from panics.
func (w *Worker) execute(fn func(*sim.Sim) any) simResult {
	var result simResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
				log.Errorf("sim request panicked: %v", r)
			}
		}()
		result.value = fn(w.sim)
	}()
	return result
}

// Do submits a function for execution on the sim goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*sim.Sim) any) (any, error) {
	req := simRequest{
		fn:   fn,
		done: make(chan simResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	}
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine and waits for it to exit.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.stopped
}
