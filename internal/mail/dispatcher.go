package mail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "sparked/internal/errors"
)

// Dispatcher hands messages to background delivery without blocking the caller.
type Dispatcher interface {
	Dispatch(msg Message)
}

// QueueDispatcher drains a buffered queue with a fixed pool of workers.
// Failed sends are logged and dropped, never retried.
type QueueDispatcher struct {
	sender  Sender
	log     *zap.Logger
	queue   chan Message
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Dispatcher = (*QueueDispatcher)(nil)

// NewQueueDispatcher creates a dispatcher; call Start to begin delivery.
func NewQueueDispatcher(sender Sender, workers, queueSize int, timeout time.Duration, log *zap.Logger) *QueueDispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &QueueDispatcher{
		sender:  sender,
		log:     log,
		queue:   make(chan Message, queueSize),
		workers: workers,
		timeout: timeout,
	}
}

// Start launches the worker pool.
func (d *QueueDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Dispatch enqueues msg. A full or stopped queue drops the message with an error log.
func (d *QueueDispatcher) Dispatch(msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Error("mail dispatcher stopped, dropping message",
			zap.String("to", msg.To), zap.Error(apperrors.ErrNotificationFailure))
		return
	}

	select {
	case d.queue <- msg:
	default:
		d.log.Error("mail queue full, dropping message",
			zap.String("to", msg.To), zap.Error(apperrors.ErrNotificationFailure))
	}
}

// Stop closes the queue and waits for workers to drain it or for ctx to end.
func (d *QueueDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *QueueDispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *QueueDispatcher) deliver(msg Message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Error("failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.NamedError("kind", apperrors.ErrNotificationFailure),
			zap.Error(err),
		)
		return
	}
	d.log.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
}
