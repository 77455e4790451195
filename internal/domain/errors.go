package domain

import "errors"

// Error taxonomy of the engine. Single-ticker problems (ErrNoData,
// ErrInsufficientData, ErrProviderUnavailable) are absorbed by exclusion;
// run-level failures (ErrNoEligibleCandidates, ErrInvalidParameters)
// propagate and abort the run.
var (
	// ErrNoData means the provider has no rows at all for a ticker/range.
	ErrNoData = errors.New("no price data")

	// ErrInsufficientData means a ticker or benchmark lacks enough history
	// for a required window.
	ErrInsufficientData = errors.New("insufficient history")

	// ErrNoEligibleCandidates means a selection step produced zero tickers.
	ErrNoEligibleCandidates = errors.New("no eligible candidates")

	// ErrProviderUnavailable means a fetch exhausted its retries.
	ErrProviderUnavailable = errors.New("price provider unavailable")

	// ErrInvalidParameters means the configuration violates the recognised
	// option contract.
	ErrInvalidParameters = errors.New("invalid parameters")
)
