package events

import (
	"time"

	"github.com/google/uuid"
)

// RatesIngested is emitted after an ingestion run wrote or restored rates.
type RatesIngested struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	Source      string    `json:"source"`
	StoredCount int       `json:"stored_count"`
	Discarded   int       `json:"discarded"`
	Stale       bool      `json:"stale"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e RatesIngested) Type() string { return EventTypeRatesIngested.String() }

// RatesDegraded is emitted when every provider failed and no snapshot exists.
type RatesDegraded struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RatesDegraded) Type() string { return EventTypeRatesDegraded.String() }

// NewRatesIngested builds a RatesIngested event stamped with a fresh ID.
func NewRatesIngested(runID uuid.UUID, source string, stored, discarded int, stale bool) *RatesIngested {
	return &RatesIngested{
		ID:          uuid.New(),
		RunID:       runID,
		Source:      source,
		StoredCount: stored,
		Discarded:   discarded,
		Stale:       stale,
		Timestamp:   time.Now(),
	}
}

// NewRatesDegraded builds a RatesDegraded event stamped with a fresh ID.
func NewRatesDegraded(runID uuid.UUID, reason string) *RatesDegraded {
	return &RatesDegraded{
		ID:        uuid.New(),
		RunID:     runID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}
