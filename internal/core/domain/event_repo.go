package domain

import "context"

type EventRepository interface {
	Save(ctx context.Context, topic, id string, events []Event) error
	// RegisterEventsHandler registers a handler invoked with the whole history
	// of the aggregate every time new events are saved for it.
	RegisterEventsHandler(topic string, handler func(events []Event))
	ClearRegisteredHandlers(topics ...string)
	Close()
}
