// Package universe resolves the tradable symbol universe for a run.
package universe

import (
	"sort"

	"github.com/rs/zerolog"

	"momentor/internal/domain"
)

// Dual-class aliases collapsed into their primary listing. Holding both
// classes would double the exposure to one company.
var excludedAliases = map[string]string{
	"GOOGL": "GOOG",
}

// Universe is the resolved set of tradable symbols. Symbols iterates in
// lexicographic order; ranking ties and remainder rules depend on this order
// being deterministic, so it is part of the contract rather than an
// implementation detail.
type Universe struct {
	symbols []string
	names   map[string]string
}

// Symbols returns the universe symbols in lexicographic order.
func (u *Universe) Symbols() []string {
	return u.symbols
}

// Name returns the company name for a symbol, or the symbol itself when the
// name is unknown.
func (u *Universe) Name(symbol string) string {
	if name, ok := u.names[symbol]; ok {
		return name
	}
	return symbol
}

// Size returns the number of symbols in the universe.
func (u *Universe) Size() int {
	return len(u.symbols)
}

// Resolver builds the trading universe from two index constituent maps.
type Resolver struct {
	log zerolog.Logger
}

// NewResolver creates a new universe resolver.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{log: log.With().Str("module", "universe").Logger()}
}

// Resolve intersects two symbol-to-name constituent maps and removes
// excluded dual-class aliases. Returns domain.ErrEmptyUniverse when the
// intersection is empty, which also covers the case where either provider
// returned no data.
func (r *Resolver) Resolve(first, second map[string]string) (*Universe, error) {
	names := make(map[string]string)
	for symbol, name := range first {
		if _, ok := second[symbol]; !ok {
			continue
		}
		if _, excluded := excludedAliases[symbol]; excluded {
			r.log.Debug().Str("symbol", symbol).Msg("Excluded dual-class alias")
			continue
		}
		names[symbol] = name
	}

	if len(names) == 0 {
		return nil, domain.ErrEmptyUniverse
	}

	symbols := make([]string, 0, len(names))
	for symbol := range names {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	r.log.Info().Int("size", len(symbols)).Msg("Universe resolved")

	return &Universe{symbols: symbols, names: names}, nil
}
