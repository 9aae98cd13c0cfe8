package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	persistQueueSize = 64
	persistTimeout   = 10 * time.Second
)

var errQueueFull = errors.New("persistence queue is full")

type persistJob struct {
	op     string
	chatID string
	run    func(ctx context.Context) error
	done   chan struct{} // flush marker when set
}

// persister applies best-effort writes for one session in the order they were issued.
// Failures become PersistenceWarnings in the log and are never returned.
type persister struct {
	jobs    chan persistJob
	stopped chan struct{}
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newPersister(logger *slog.Logger) *persister {
	p := &persister{
		jobs:    make(chan persistJob, persistQueueSize),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	go p.loop()
	return p
}

func (p *persister) loop() {
	defer close(p.stopped)
	for job := range p.jobs {
		if job.done != nil {
			close(job.done)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := job.run(ctx)
		cancel()
		if err != nil {
			warning := &PersistenceWarning{Op: job.op, ChatID: job.chatID, Err: err}
			p.logger.Warn("persistence failed", "op", job.op, "chat_id", job.chatID, "error", warning)
		}
	}
}

// submit queues a write without blocking. A full queue drops the write with a warning.
func (p *persister) submit(op, chatID string, run func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Warn("persistence dropped after close", "op", op, "chat_id", chatID)
		return
	}
	select {
	case p.jobs <- persistJob{op: op, chatID: chatID, run: run}:
	default:
		warning := &PersistenceWarning{Op: op, ChatID: chatID, Err: errQueueFull}
		p.logger.Warn("persistence dropped", "op", op, "chat_id", chatID, "error", warning)
	}
}

// Flush waits until every job submitted before the call has run.
func (p *persister) Flush(ctx context.Context) error {
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	select {
	case p.jobs <- persistJob{done: done}:
		p.mu.Unlock()
	case <-ctx.Done():
		p.mu.Unlock()
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued jobs and stops the worker.
func (p *persister) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	<-p.stopped
}
