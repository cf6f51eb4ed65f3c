package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// ErrWorkerStopped is returned by Publish once Stop has been called.
var ErrWorkerStopped = errors.New("notification worker stopped")

// NotificationWorker queues published events and delivers them to the
// notification handlers on a background goroutine, so request handling never
// waits on notification delivery. It satisfies events.Dispatcher.
type NotificationWorker struct {
	handlers events.Dispatcher
	queue    chan events.Event
	logger   *zap.Logger

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// StartNotificationWorker registers notification handlers on handlers and
// starts draining a queue of size buffer into it.
func StartNotificationWorker(notifications *service.NotificationService, handlers events.Dispatcher, logger *zap.Logger, buffer int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	w := &NotificationWorker{
		handlers: handlers,
		queue:    make(chan events.Event, buffer),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.run()
	logger.Info("notification worker started", zap.Int("buffer", buffer))
	return w
}

// Publish enqueues the event, waiting for queue space until ctx is done.
func (w *NotificationWorker) Publish(ctx context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	select {
	case w.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers an additional handler on the delivery dispatcher.
func (w *NotificationWorker) Subscribe(eventType events.EventType, handler events.EventHandler) {
	w.handlers.Subscribe(eventType, handler)
}

// Stop refuses new events and waits until queued ones are delivered or ctx
// is done.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *NotificationWorker) run() {
	defer close(w.done)
	for event := range w.queue {
		if err := w.handlers.Publish(context.Background(), event); err != nil {
			w.logger.Warn("notification delivery failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
}
