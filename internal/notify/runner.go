package notify

import (
	"context"
	"log/slog"
	"sync"

	"qrtrack/internal/models"
)

type EffectKind string

// EffectBecameNext is emitted when a ticket enters the next status from any
// other status.
const EffectBecameNext EffectKind = "ticket.became_next"

type Effect struct {
	Kind   EffectKind
	Ticket models.Ticket
}

// Runner executes the side effects produced by a status change. Failures are
// logged by the dispatcher and never surface to the caller.
type Runner interface {
	Run(ctx context.Context, effects []Effect)
}

// InlineRunner dispatches in the caller's goroutine and returns once every
// delivery has finished or timed out.
type InlineRunner struct {
	dispatcher *Dispatcher
}

func NewInlineRunner(dispatcher *Dispatcher) *InlineRunner {
	return &InlineRunner{dispatcher: dispatcher}
}

func (r *InlineRunner) Run(ctx context.Context, effects []Effect) {
	// Deliveries outlive a disconnected caller; the per-channel timeout bounds them.
	ctx = context.WithoutCancel(ctx)
	for _, effect := range effects {
		if effect.Kind != EffectBecameNext {
			continue
		}
		r.dispatcher.Dispatch(ctx, effect.Ticket)
	}
}

type WorkerConfig struct {
	Workers   int
	QueueSize int
	Logger    *slog.Logger
}

// Worker hands effects to a bounded queue drained by a fixed pool of
// goroutines. Effects are dropped when the queue is full or the worker is
// closed.
type Worker struct {
	dispatcher *Dispatcher
	queue      chan Effect
	workers    int
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorker(dispatcher *Dispatcher, cfg WorkerConfig) *Worker {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		dispatcher: dispatcher,
		queue:      make(chan Effect, size),
		workers:    workers,
		logger:     logger.With("component", "notify-worker"),
	}
}

func (w *Worker) Run(_ context.Context, effects []Effect) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, effect := range effects {
		if effect.Kind != EffectBecameNext {
			continue
		}
		if w.closed {
			effectsDropped.Inc()
			w.logger.Warn("notification worker closed, dropping effect", "ticket_id", effect.Ticket.ID)
			continue
		}
		select {
		case w.queue <- effect:
		default:
			effectsDropped.Inc()
			w.logger.Warn("notification queue full, dropping effect", "ticket_id", effect.Ticket.ID)
		}
	}
}

// Start launches the pool. ctx only supplies values to deliveries; the pool
// runs until Close and drains whatever was queued before it.
func (w *Worker) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for effect := range w.queue {
				w.dispatcher.Dispatch(ctx, effect.Ticket)
			}
		}()
	}
}

// Close stops accepting effects. Queued effects are still delivered; call
// Wait to block until they have been.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.queue)
}

func (w *Worker) Wait() {
	w.wg.Wait()
}
