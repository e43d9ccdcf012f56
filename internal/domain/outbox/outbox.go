// Package outbox declares the ports of the in-process event bus. Publishing never dispatches;
// handlers only run when a Drainer is asked to deliver.
package outbox

import "context"

type Event interface {
	EventName() string
}

// Handler reacts to one event. A returned error is reported by the drain, it does not stop it.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Drainer dispatches everything queued so far and reports how many events it delivered.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}
