package rates

import "github.com/amirasaad/fxrates/pkg/exchange/core"

// ConvertQuery is the query string of GET /api/convert.
type ConvertQuery struct {
	From   string  `query:"from" validate:"required,alphanum,min=2,max=10"`
	To     string  `query:"to" validate:"required,alphanum,min=2,max=10"`
	Amount float64 `query:"amount" validate:"gt=0"`
}

// AvailabilityDTO answers whether a pair resolves.
type AvailabilityDTO struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Available bool   `json:"available"`
}

// IngestDTO reports a manual ingestion trigger.
type IngestDTO struct {
	Ran    bool              `json:"ran"`
	Result core.IngestResult `json:"result"`
}
