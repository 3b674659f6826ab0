package realtime

// Emitter hands change events to the relay after a mutation commits.
// Emission is fire-and-forget: a mutation that persisted must never fail
// its HTTP response because the notification could not be delivered.
type Emitter struct {
	hub *Hub
}

// NewEmitter creates an emitter bound to a hub. A nil hub yields an emitter
// whose Emit is a no-op, which keeps handlers testable without a relay.
func NewEmitter(hub *Hub) *Emitter {
	return &Emitter{hub: hub}
}

// Emit publishes the event to all connections. Call only after the mutation
// has committed; never on partial failure.
func (e *Emitter) Emit(event Event) {
	if e == nil || e.hub == nil {
		return
	}
	e.hub.Publish(event)
}
