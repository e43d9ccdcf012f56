package outbox

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/medishop/internal/domain/outbox"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"
)

const (
	componentOutbox    = "outbox"
	defaultConcurrency = 8
	handlerTimeout     = 30 * time.Second
)

// Bus is an in-memory, pull-based event bus. Publish only enqueues; nothing is dispatched
// until Drain is called, so no background goroutine is ever started.
type Bus struct {
	mu          sync.Mutex
	subs        map[string][]domoutbox.Handler
	pending     []domoutbox.Event
	concurrency int
	log         observability.Logger
}

func NewBus(logger observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		concurrency: defaultConcurrency,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	if err := ctx.Err(); err != nil {
		logger.Warn("event_enqueue_aborted", observability.Err(err))
		return err
	}

	b.mu.Lock()
	b.pending = append(b.pending, e)
	b.mu.Unlock()

	logger.Debug("event_enqueued")
	return nil
}

// Pending reports how many events wait for the next Drain.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Drain dispatches every event queued before the call, in publish order, and returns how many
// were dispatched. Events published by handlers during the drain wait for the next call.
// Handler failures are joined into the returned error; they never stop the drain.
func (b *Bus) Drain(ctx context.Context) (int, error) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	var errs []error
	for i, e := range batch {
		if err := ctx.Err(); err != nil {
			b.requeue(batch[i:])
			return i, errors.Join(append(errs, err)...)
		}
		errs = append(errs, b.fanout(ctx, e)...)
	}

	if len(batch) > 0 {
		logctx.FromOr(ctx, b.log).Debug("outbox_drained", observability.F("events", len(batch)))
	}
	return len(batch), errors.Join(errs...)
}

func (b *Bus) requeue(events []domoutbox.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(append([]domoutbox.Event(nil), events...), b.pending...)
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) []error {
	name := e.EventName()

	b.mu.Lock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.Unlock()

	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	sem := make(chan struct{}, b.concurrency)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
					fail(fmt.Errorf("outbox: handler for %s panicked: %v", name, r))
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(logctx.With(ctx, logger), handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error", observability.Err(err))
				fail(fmt.Errorf("outbox: %s: %w", name, err))
			}
		}()
	}
	wg.Wait()

	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
	return errs
}
