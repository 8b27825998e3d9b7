package domain

import "errors"

// Run-stopping vetoes. These are expected outcomes, not system faults: the
// caller reports them and waits for the next trigger.
var (
	// ErrEmptyUniverse - the index intersection produced no tradable symbols.
	ErrEmptyUniverse = errors.New("no common symbols between the reference indices")

	// ErrMarketConditionNotMet - the benchmark closed at or below its
	// 220-session moving average (or its history could not be evaluated).
	ErrMarketConditionNotMet = errors.New("market condition not met: benchmark below its 220-session average")

	// ErrNoEligibleSymbols - every universe symbol failed the trend filter.
	ErrNoEligibleSymbols = errors.New("no symbols passed the trend filter")

	// ErrNoScorableSymbols - no surviving symbol had enough valid history to score.
	ErrNoScorableSymbols = errors.New("no symbols could be scored")
)

// ErrMarketDataUnavailable - a market data fetch failed after the client's
// own retries were exhausted. Possibly transient; retryable upstream.
var ErrMarketDataUnavailable = errors.New("market data unavailable")

// ErrNoCapital - no previous completed run exists and no initial capital was
// provided for the first run.
var ErrNoCapital = errors.New("no capital available: provide initial capital for the first run")
