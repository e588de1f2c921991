package pipeline

import (
	"context"
	"sync"

	"github.com/fairdiet/fairdiet/internal/logging"
)

// Request is one recompute submission.
type Request struct {
	Region string            `json:"region"`
	State  InterventionState `json:"state"`
}

// Result is delivered on Scheduler.Results for the newest request only.
type Result struct {
	Seq     uint64
	Request Request
	Bundle  *ResultBundle
	Err     error
}

// Outcome classifies the result.
func (r Result) Outcome() Outcome {
	return Classify(r.Bundle, r.Err)
}

// Scheduler runs at most one recompute at a time for a session. A new
// submission replaces any pending one and cancels the one in flight; results
// of superseded requests are dropped. Results has capacity one and also keeps
// only the newest undelivered result.
type Scheduler struct {
	r   Recomputer
	ctx context.Context

	mu       sync.Mutex
	seq      uint64
	pending  *Request
	inflight context.CancelFunc

	wake    chan struct{}
	results chan Result
	done    chan struct{}
	stop    context.CancelFunc
}

// NewScheduler starts the worker goroutine. It stops when ctx is done or
// Close is called.
func NewScheduler(ctx context.Context, r Recomputer) *Scheduler {
	ctx, stop := context.WithCancel(ctx)
	s := &Scheduler{
		r:       r,
		ctx:     ctx,
		wake:    make(chan struct{}, 1),
		results: make(chan Result, 1),
		done:    make(chan struct{}),
		stop:    stop,
	}
	go s.loop()
	return s
}

// Submit queues req, superseding anything pending or running, and returns
// its sequence number.
func (s *Scheduler) Submit(req Request) uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.pending = &req
	if s.inflight != nil {
		s.inflight()
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return seq
}

// Results delivers the newest completed result. The channel is closed after
// the worker stops.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Close stops the worker and waits for it to exit.
func (s *Scheduler) Close() {
	s.stop()
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)
	defer close(s.results)
	log := logging.FromContext(s.ctx)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		req := s.pending
		seq := s.seq
		s.pending = nil
		runCtx, cancel := context.WithCancel(s.ctx)
		s.inflight = cancel
		s.mu.Unlock()

		if req == nil {
			cancel()
			continue
		}

		bundle, err := s.r.Recompute(runCtx, req.Region, req.State)
		cancel()

		s.mu.Lock()
		s.inflight = nil
		stale := seq != s.seq
		s.mu.Unlock()

		if stale || s.ctx.Err() != nil {
			log.Debug().
				Ctx(s.ctx).
				Str("component", "scheduler").
				Uint64("seq", seq).
				Msg("dropping superseded recompute")
			continue
		}
		s.deliver(Result{Seq: seq, Request: *req, Bundle: bundle, Err: err})
	}
}

// deliver replaces any undelivered result with r.
func (s *Scheduler) deliver(r Result) {
	for {
		select {
		case s.results <- r:
			return
		default:
		}
		select {
		case <-s.results:
		default:
		}
	}
}
