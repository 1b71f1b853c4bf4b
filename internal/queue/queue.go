package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/obs"
	"go.uber.org/zap"
)

// Stats is a point-in-time view of queue counters.
type Stats struct {
	Enqueued  uint64 `json:"events_enqueued"`
	Processed uint64 `json:"events_processed"`
	Rejected  uint64 `json:"events_rejected"`
	Backlog   int    `json:"backlog_size"`
	Depth     int    `json:"queue_depth"`
}

// Drained reports whether every accepted event has been applied.
func (s Stats) Drained() bool {
	return s.Backlog == 0 && s.Depth == 0 && s.Enqueued == s.Processed
}

// Queue buffers stock events in an unbounded backlog and feeds them to
// workers through a bounded channel.
type Queue struct {
	mu      sync.Mutex
	backlog []model.StockEvent
	wake    chan struct{}
	out     chan model.StockEvent
	closed  atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a Queue whose output channel holds outBuffer events.
func New(outBuffer int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	return &Queue{
		wake: make(chan struct{}, 1),
		out:  make(chan model.StockEvent, outBuffer),
	}
}

// Start runs the broker until ctx is done. A positive highWatermark logs a
// warning each time the backlog grows past it.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.broker(ctx, highWatermark)
}

func (q *Queue) broker(ctx context.Context, highWatermark int) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	over := false
	for {
		q.flush()
		if highWatermark > 0 {
			sz := q.BacklogSize()
			switch {
			case sz > highWatermark && !over:
				over = true
				obs.Logger.Warn("queue_high_watermark",
					zap.Int("backlog_size", sz),
					zap.Int("high_watermark", highWatermark),
				)
			case sz <= highWatermark && over:
				over = false
				obs.Logger.Info("queue_below_watermark", zap.Int("backlog_size", sz))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// flush moves as much backlog as fits into the output channel, preserving
// arrival order.
func (q *Queue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.backlog) && len(q.out) < cap(q.out) {
		q.out <- q.backlog[n]
		n++
	}
	if n > 0 {
		q.backlog = append(q.backlog[:0:0], q.backlog[n:]...)
	}
}

// Enqueue appends ev to the backlog and wakes the broker. It returns false
// once intake is closed.
func (q *Queue) Enqueue(ev model.StockEvent) bool {
	if q.closed.Load() {
		q.rejected.Add(1)
		return false
	}
	q.enqueued.Add(1)
	q.mu.Lock()
	q.backlog = append(q.backlog, ev)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Out is the channel workers receive events from.
func (q *Queue) Out() <-chan model.StockEvent { return q.out }

// BacklogSize returns the number of events not yet handed to a worker channel.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus events buffered in the output channel.
func (q *Queue) QueueDepth() int {
	return q.BacklogSize() + len(q.out)
}

// MarkProcessed records one applied event.
func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Rejected:  q.rejected.Load(),
		Backlog:   q.BacklogSize(),
		Depth:     q.QueueDepth(),
	}
}

// CloseIntake rejects all further enqueues.
func (q *Queue) CloseIntake() { q.closed.Store(true) }

// IsShuttingDown reports whether intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.closed.Load() }
