package core

import "errors"

// Common errors for exchange operations
var (
	// ErrInvalidAmount indicates a non-finite or non-positive amount
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrRateUnavailable indicates that every resolution strategy was exhausted
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrProviderUnavailable indicates that an upstream rate provider failed
	ErrProviderUnavailable = errors.New("rate provider unavailable")

	// ErrCorruptRate indicates a non-finite or non-positive rate
	ErrCorruptRate = errors.New("corrupt rate discarded")

	// ErrInvalidCurrencyCode indicates a malformed currency code
	ErrInvalidCurrencyCode = errors.New("invalid currency code")

	// ErrNoSnapshot indicates that no ingestion snapshot has been cached yet
	ErrNoSnapshot = errors.New("no cached rate snapshot")
)

// ProviderError represents an error from a rate provider
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return "provider " + e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes every ProviderError match ErrProviderUnavailable.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// IsProviderError checks if an error is a ProviderError
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
