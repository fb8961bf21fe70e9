package inference

import (
	"context"
	"sync"

	"rigshift/internal/features"
)

// Result is the outcome of one asynchronous request.
type Result struct {
	Frame  int
	Output Output
	Err    error
}

// WorkerStats counts what happened to submitted frames.
type WorkerStats struct {
	Submitted int
	Completed int
	// Dropped counts frames replaced by a newer frame before they started,
	// plus results that finished after a newer result was already published.
	Dropped int
}

type request struct {
	frame int
	set   features.Set
}

// Worker runs at most one inference at a time on an Engine. A frame submitted
// while another is running waits in a single slot; a newer submission
// replaces it, so backlog never grows past one frame.
type Worker struct {
	engine *Engine
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	pending   *request
	latest    *Result
	published int
	stats     WorkerStats
	running   bool
	wake      chan struct{}
	idle      *sync.Cond
	done      chan struct{}
}

// NewWorker starts a worker on engine. Close stops it.
func NewWorker(ctx context.Context, engine *Engine) *Worker {
	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		engine:    engine,
		ctx:       ctx,
		cancel:    cancel,
		published: -1,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// Submit queues set for frame, replacing any frame still waiting. Frames
// submitted after Close are dropped.
func (w *Worker) Submit(frame int, set features.Set) {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.stats.Dropped++
		w.mu.Unlock()
		return
	}
	if w.pending != nil {
		w.stats.Dropped++
	}
	w.pending = &request{frame: frame, set: set}
	w.stats.Submitted++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Latest returns the newest completed result not yet taken.
func (w *Worker) Latest() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.latest == nil {
		return Result{}, false
	}
	r := *w.latest
	w.latest = nil
	return r, true
}

// Drain waits until nothing is waiting or running.
func (w *Worker) Drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.pending != nil || w.running {
		w.idle.Wait()
	}
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() WorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Close stops the worker after the running call returns. Waiting frames are
// discarded.
func (w *Worker) Close() {
	w.cancel()
	<-w.done
}

func (w *Worker) loop() {
	defer func() {
		w.mu.Lock()
		w.pending = nil
		w.running = false
		w.idle.Broadcast()
		w.mu.Unlock()
		close(w.done)
	}()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.wake:
		}
		for {
			w.mu.Lock()
			req := w.pending
			w.pending = nil
			w.running = req != nil
			if req == nil {
				w.idle.Broadcast()
				w.mu.Unlock()
				break
			}
			w.mu.Unlock()

			out, err := w.engine.Infer(w.ctx, req.set)
			if w.ctx.Err() == nil {
				// A timed-out call keeps the engine busy; wait so the next
				// frame is not rejected as busy.
				_ = w.engine.Wait(w.ctx)
			}

			w.mu.Lock()
			w.running = false
			w.stats.Completed++
			if req.frame > w.published {
				w.published = req.frame
				w.latest = &Result{Frame: req.frame, Output: out, Err: err}
			} else {
				w.stats.Dropped++
			}
			w.idle.Broadcast()
			w.mu.Unlock()

			if w.ctx.Err() != nil {
				return
			}
		}
	}
}
