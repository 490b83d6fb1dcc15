package events

// Event is anything that can travel over the event bus.
type Event interface {
	Type() string
}

// EventTypes maps event types to constructors used when decoding envelopes.
var EventTypes = map[EventType]func() Event{
	EventTypeRatesIngested: func() Event { return &RatesIngested{} },
	EventTypeRatesDegraded: func() Event { return &RatesDegraded{} },
}
