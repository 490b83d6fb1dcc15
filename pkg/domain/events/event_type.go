package events

// EventType represents the type of an event in the system.
type EventType string

// Event type constants
const (
	// Ingestion events
	EventTypeRatesIngested EventType = "Rates.Ingested"
	EventTypeRatesDegraded EventType = "Rates.Degraded"
)

func (t EventType) String() string {
	return string(t)
}
