package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// Dispatcher writes audit entries in the background on a fixed set of workers,
// sharded by user id so one user's entries are stored in the order recorded.
type Dispatcher struct {
	workers []chan domain.AuditEntry
	repo    ports.AuditRepository
	log     zerolog.Logger

	depth   atomic.Int64
	dropped atomic.Int64
	wg      sync.WaitGroup
}

var _ ports.AuditSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuditEntry, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEntry, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain what is already queued
// and stop when ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record queues an entry without blocking. Entries are dropped when the
// worker's buffer is full.
func (d *Dispatcher) Record(entry domain.AuditEntry) {
	select {
	case d.workers[d.shardIndex(entry.UserID)] <- entry:
		d.depth.Add(1)
	default:
		d.dropped.Add(1)
		d.log.Warn().Str("action", entry.Action).Str("user_id", entry.UserID).Msg("audit queue full, entry dropped")
	}
}

// Depth reports how many entries are waiting to be written.
func (d *Dispatcher) Depth() int64 { return d.depth.Load() }

// Dropped reports how many entries were discarded because a queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEntry) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case entry := <-ch:
			d.write(context.WithoutCancel(ctx), id, entry)
		}
	}
}

func (d *Dispatcher) drain(id int, ch <-chan domain.AuditEntry) {
	for {
		select {
		case entry := <-ch:
			d.write(context.Background(), id, entry)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, id int, entry domain.AuditEntry) {
	defer d.depth.Add(-1)

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := d.repo.Insert(ctx, &entry); err != nil {
		d.log.Error().Err(err).
			Str("action", entry.Action).
			Str("user_id", entry.UserID).
			Int("worker_id", id).
			Msg("audit write failed")
	}
}
