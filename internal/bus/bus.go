// Package bus fans fired alerts out to delivery channels.
package bus

import (
	"context"
	"sync"

	"github.com/stellarlinkco/mytodo/internal/notify"
	"go.uber.org/zap"
)

type Handler func(notify.Alert)

// AlertBus is a buffered queue of alerts with named subscribers. Publish
// never blocks; Dispatch delivers on its own goroutine.
type AlertBus struct {
	queue  chan notify.Alert
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]Handler
}

func New(bufSize int, logger *zap.Logger) *AlertBus {
	if bufSize <= 0 {
		bufSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertBus{
		queue:  make(chan notify.Alert, bufSize),
		logger: logger,
		subs:   make(map[string]Handler),
	}
}

// Publish enqueues a. When the buffer is full the alert is dropped.
func (b *AlertBus) Publish(a notify.Alert) {
	select {
	case b.queue <- a:
	default:
		b.logger.Warn("alert queue full, dropping alert", zap.String("id", a.ID), zap.String("title", a.Title))
	}
}

// Subscribe registers fn under name, replacing any previous handler with
// that name.
func (b *AlertBus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = fn
}

func (b *AlertBus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, name)
}

// Dispatch delivers queued alerts to every subscriber until ctx is done.
func (b *AlertBus) Dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-b.queue:
			b.deliver(a)
		}
	}
}

func (b *AlertBus) deliver(a notify.Alert) {
	b.mu.RLock()
	handlers := make(map[string]Handler, len(b.subs))
	for name, fn := range b.subs {
		handlers[name] = fn
	}
	b.mu.RUnlock()

	for name, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("alert subscriber panicked", zap.String("subscriber", name), zap.Any("panic", r))
				}
			}()
			fn(a)
		}()
	}
}
