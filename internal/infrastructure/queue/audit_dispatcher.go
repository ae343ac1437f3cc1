// Package queue decouples audit persistence from the sign-in path: events
// are buffered and written by background workers so a slow audit store can
// never delay a session operation.
package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

const (
	defaultWorkers = 2
	channelBuffer  = 128
)

// AuditDispatcher fans audit events out to a fixed set of workers, sharded
// by user ID so one user's events keep their order.
type AuditDispatcher struct {
	workers []chan domain.AuditEvent
	sink    ports.AuditSink
	log     zerolog.Logger
}

// NewAuditDispatcher creates a dispatcher writing to sink with numWorkers
// sharded workers. If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, sink ports.AuditSink, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record satisfies ports.AuditSink. The event is enqueued without blocking;
// when the shard's buffer is full the event is dropped with a warning,
// since audit writes are best-effort by contract.
func (d *AuditDispatcher) Record(_ context.Context, ev domain.AuditEvent) error {
	ch := d.workers[d.shardIndex(ev.UserID)]
	select {
	case ch <- ev:
	default:
		d.log.Warn().Str("action", string(ev.Action)).Msg("audit queue full, event dropped")
	}
	return nil
}

// shardIndex maps a user ID deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := d.sink.Record(ctx, ev); err != nil {
				d.log.Error().Err(err).
					Str("action", string(ev.Action)).
					Int("worker_id", id).
					Msg("audit write failed")
			}
		}
	}
}
