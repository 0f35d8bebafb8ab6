package broadcast

import (
	"context"
	"log/slog"
	"sync"
)

// Handler consumes invalidations delivered by a Bus.
type Handler func(ctx context.Context, inv Invalidation)

// Bus is an in-process, asynchronous Publisher. Each Publish starts one
// goroutine per subscriber; a panicking handler is logged and does not
// affect the others.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
	logger   *slog.Logger
	metrics  *Metrics
}

var _ Publisher = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// SetMetrics attaches delivery counters.
func (b *Bus) SetMetrics(m *Metrics) {
	b.metrics = m
}

// Subscribe registers h for every future invalidation.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// SubscribersCount returns the number of registered handlers.
func (b *Bus) SubscribersCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Publish hands inv to every subscriber without waiting for them.
// Handlers run detached from the caller's cancellation.
func (b *Bus) Publish(ctx context.Context, inv Invalidation) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no subscribers for invalidation", "all", inv.All, "users", len(inv.UserIDs))
		b.metrics.observe("bus", resultSkipped)
		return
	}

	detached := context.WithoutCancel(ctx)
	for i, h := range handlers {
		b.wg.Add(1)
		go b.deliver(detached, i, h, inv)
	}
}

func (b *Bus) deliver(ctx context.Context, idx int, h Handler, inv Invalidation) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("invalidation handler panicked",
				"handler", idx,
				"all", inv.All,
				"panic", r,
			)
			b.metrics.observe("bus", resultError)
		}
	}()
	h(ctx, inv)
	b.metrics.observe("bus", resultOK)
}

// Wait blocks until every in-flight delivery has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
