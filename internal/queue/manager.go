// Package queue applies asynchronous stock events to the inventory with an
// autoscaling pool of workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/fairyhunter13/pos-register-simulator/internal/config"
	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/obs"
	"go.uber.org/zap"
)

// Inventory is the store the workers write to.
type Inventory interface {
	Replenish(records []model.Record) int
	AdjustQuantity(upc string, delta int) (model.CatalogEntry, bool)
}

// Manager runs workers that drain the queue into the inventory and scales
// their number with the backlog.
type Manager struct {
	cfg    config.Config
	q      *Queue
	inv    Inventory
	seq    Sequencer
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config, queue, and inventory.
func NewManager(cfg config.Config, q *Queue, inv Inventory) *Manager {
	return &Manager{cfg: cfg, q: q, inv: inv}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(max(m.cfg.InitialWorkerCount, 1))
	go m.scaler()
}

// Stop cancels background routines and stops workers.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
}

func (m *Manager) scaler() {
	interval := m.cfg.ScaleInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog > 0 {
				idleTicks = 0
				continue
			}
			idleTicks++
			if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
				m.removeWorkers(1)
				idleTicks = 0
			}
		}
	}
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.Logger.Info("workers_scaled", zap.Int("worker_count", len(m.workerCancels)))
}

func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n = min(n, len(m.workerCancels))
	for i := 0; i < n; i++ {
		last := len(m.workerCancels) - 1
		m.workerCancels[last]()
		m.workerCancels = m.workerCancels[:last]
	}
	obs.Logger.Info("workers_scaled", zap.Int("worker_count", len(m.workerCancels)))
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.q.Out():
			m.apply(ev)
			m.q.MarkProcessed()
		}
	}
}

// apply writes one event to the inventory. Adjustments for UPCs the
// inventory does not know are dropped.
func (m *Manager) apply(ev model.StockEvent) {
	if ev.IsReplenishment() {
		m.inv.Replenish([]model.Record{*ev.Record})
		return
	}
	if _, ok := m.inv.AdjustQuantity(ev.UPC, ev.Delta); !ok {
		obs.Logger.Warn("stock_event_unknown_upc",
			zap.Uint64("sequence", ev.Sequence),
			zap.String("upc", ev.UPC),
			zap.Int("delta", ev.Delta),
		)
	}
}

// Enqueue stamps ev with the next sequence number and queues it. The
// sequence is returned with false when intake is closed.
func (m *Manager) Enqueue(ev model.StockEvent) (uint64, bool) {
	ev.Sequence = m.seq.Next()
	return ev.Sequence, m.q.Enqueue(ev)
}

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

// IsShuttingDown reports whether new enqueues are rejected.
func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future enqueues.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// Stats exposes the underlying queue counters.
func (m *Manager) Stats() Stats { return m.q.Stats() }

// DrainUntil blocks until every accepted event is applied or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		if m.q.Stats().Drained() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
