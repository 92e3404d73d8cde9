package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BacklogObserver reports the dispatch queue depth, usually to a gauge.
type BacklogObserver interface {
	SetDispatchBacklog(depth int)
}

type nopBacklog struct{}

func (nopBacklog) SetDispatchBacklog(int) {}

// Dispatcher fans document processing triggers out to a fixed pool of
// workers over a bounded queue. Enqueue never blocks the subscriber: when
// the queue is full the trigger is dropped and logged, and the document
// stays processable by a later manual trigger.
type Dispatcher struct {
	workers int
	queue   chan string
	process func(context.Context, string) error
	backlog BacklogObserver
	log     *slog.Logger

	wg sync.WaitGroup
}

func NewDispatcher(workers, backlogSize int, process func(context.Context, string) error, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if backlogSize <= 0 {
		backlogSize = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		workers: workers,
		queue:   make(chan string, backlogSize),
		process: process,
		backlog: nopBacklog{},
		log:     log,
	}
}

func (d *Dispatcher) WithBacklogObserver(observer BacklogObserver) *Dispatcher {
	if observer != nil {
		d.backlog = observer
	}
	return d
}

// Start launches the worker pool. It returns immediately; workers drain the
// queue until ctx is cancelled. Wait blocks until they have all exited.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(ctx, i)
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a trigger to the pool without blocking. It reports whether
// the trigger was accepted.
func (d *Dispatcher) Enqueue(documentID string) bool {
	select {
	case d.queue <- documentID:
		d.backlog.SetDispatchBacklog(len(d.queue))
		return true
	default:
		d.log.Warn("dispatch queue full, dropping trigger", "document_id", documentID)
		return false
	}
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case documentID := <-d.queue:
			d.backlog.SetDispatchBacklog(len(d.queue))

			start := time.Now()
			if err := d.process(ctx, documentID); err != nil {
				d.log.Error("processing trigger failed",
					"worker", id,
					"document_id", documentID,
					"elapsed_ms", time.Since(start).Milliseconds(),
					"error", err,
				)
				continue
			}
			d.log.Info("processing trigger handled",
				"worker", id,
				"document_id", documentID,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}
