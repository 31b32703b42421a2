package core

type IEvent interface {
	GetId() string // Returns the unique identifier of the event.
}

// Emitter receives events produced by a component. Components call it from their own goroutines,
// so implementations must be safe for concurrent use and must not block for long.
type Emitter func(event IEvent)

// Emit is a nil-safe call of the emitter.
func (e Emitter) Emit(event IEvent) {
	if e != nil {
		e(event)
	}
}

// IExternalOutputEvent is implemented by events that the presentation bridge forwards to its
// connected clients.
type IExternalOutputEvent interface {
	IEvent
	External()
}

