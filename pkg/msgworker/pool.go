package msgworker

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Job is one unit of inbound work. Jobs sharing DeviceID and ChatJID run on the
// same worker, so messages of one conversation are handled in arrival order.
type Job struct {
	DeviceID string
	ChatJID  string
	Handler  func(ctx context.Context) error
}

func (j Job) key() string {
	return j.DeviceID + "|" + j.ChatJID
}

type PoolStats struct {
	NumWorkers      int           `json:"num_workers"`
	QueueSize       int           `json:"queue_size"`
	ActiveWorkers   int           `json:"active_workers"`
	TotalDispatched int64         `json:"total_dispatched"`
	TotalProcessed  int64         `json:"total_processed"`
	TotalDropped    int64         `json:"total_dropped"`
	TotalErrors     int64         `json:"total_errors"`
	Workers         []WorkerStats `json:"workers"`
}

type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// Pool is a fixed set of workers, each with its own bounded queue.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
	stopped    atomic.Bool
	sendMu     sync.RWMutex

	dispatched atomic.Int64
	processed  atomic.Int64
	dropped    atomic.Int64
	errors     atomic.Int64
}

type worker struct {
	id         int
	queue      chan Job
	processing atomic.Bool
	done       atomic.Int64
}

func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 10
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	p := &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
	}
	for i := range p.workers {
		p.workers[i] = &worker{id: i, queue: make(chan Job, queueSize)}
	}
	return p
}

// Start launches the workers. Handlers receive ctx; cancelling it does not
// drop queued jobs, Stop drains them.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for _, w := range p.workers {
			p.wg.Add(1)
			go p.run(ctx, w)
		}
		logrus.Infof("[MSG_WORKER_POOL] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
	})
}

// TryDispatch enqueues without blocking and reports whether the job was accepted.
func (p *Pool) TryDispatch(job Job) bool {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()

	if p.stopped.Load() {
		p.dropped.Add(1)
		return false
	}

	shard := p.shardFor(job.DeviceID, job.ChatJID)
	p.dispatched.Add(1)

	select {
	case p.workers[shard].queue <- job:
		return true
	default:
		p.dropped.Add(1)
		logrus.Warnf("[MSG_WORKER_POOL] Worker %d queue full, dropping job for %s", shard, job.key())
		return false
	}
}

func (p *Pool) Dispatch(job Job) {
	_ = p.TryDispatch(job)
}

// Stop closes the queues and waits until every queued job has run.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.sendMu.Lock()
		p.stopped.Store(true)
		for _, w := range p.workers {
			close(w.queue)
		}
		p.sendMu.Unlock()

		logrus.Info("[MSG_WORKER_POOL] Stopping workers...")
		p.wg.Wait()
		logrus.Info("[MSG_WORKER_POOL] All workers stopped")
	})
}

func (p *Pool) shardFor(deviceID, chatJID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID + "|" + chatJID))
	return int(h.Sum32() % uint32(p.numWorkers))
}

func (p *Pool) Stats() PoolStats {
	stats := PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		TotalDispatched: p.dispatched.Load(),
		TotalProcessed:  p.processed.Load(),
		TotalDropped:    p.dropped.Load(),
		TotalErrors:     p.errors.Load(),
		Workers:         make([]WorkerStats, len(p.workers)),
	}
	for i, w := range p.workers {
		busy := w.processing.Load()
		if busy {
			stats.ActiveWorkers++
		}
		stats.Workers[i] = WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.queue),
			IsProcessing:  busy,
			JobsProcessed: w.done.Load(),
		}
	}
	return stats
}

func (p *Pool) run(ctx context.Context, w *worker) {
	defer p.wg.Done()
	for job := range w.queue {
		p.execute(ctx, w, job)
	}
	logrus.Debugf("[MSG_WORKER_POOL] Worker %d shutting down", w.id)
}

func (p *Pool) execute(ctx context.Context, w *worker, job Job) {
	w.processing.Store(true)
	defer func() {
		if r := recover(); r != nil {
			p.errors.Add(1)
			logrus.Errorf("[MSG_WORKER_POOL] Worker %d panic for %s: %v", w.id, job.key(), r)
		}
		w.processing.Store(false)
		w.done.Add(1)
		p.processed.Add(1)
	}()

	if err := job.Handler(ctx); err != nil {
		p.errors.Add(1)
		logrus.WithError(err).Errorf("[MSG_WORKER_POOL] Worker %d job failed for %s", w.id, job.key())
	}
}
