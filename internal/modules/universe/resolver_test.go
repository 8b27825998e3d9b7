package universe

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"momentor/internal/domain"
)

func TestResolve_Intersection(t *testing.T) {
	resolver := NewResolver(zerolog.Nop())

	sp500 := map[string]string{
		"AAPL": "Apple Inc.",
		"MSFT": "Microsoft Corporation",
		"XOM":  "Exxon Mobil",
	}
	nasdaq100 := map[string]string{
		"AAPL": "Apple Inc.",
		"MSFT": "Microsoft Corporation",
		"PEP":  "PepsiCo",
	}

	universe, err := resolver.Resolve(sp500, nasdaq100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"AAPL", "MSFT"}
	got := universe.Symbols()
	if len(got) != len(want) {
		t.Fatalf("universe = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbol[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolve_ExcludesDualClassAlias(t *testing.T) {
	resolver := NewResolver(zerolog.Nop())

	constituents := map[string]string{
		"GOOG":  "Alphabet Inc. (Class C)",
		"GOOGL": "Alphabet Inc. (Class A)",
		"AAPL":  "Apple Inc.",
	}

	universe, err := resolver.Resolve(constituents, constituents)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, symbol := range universe.Symbols() {
		if symbol == "GOOGL" {
			t.Error("GOOGL should be excluded as a dual-class alias")
		}
	}
	if universe.Size() != 2 {
		t.Errorf("universe size = %d, want 2 (AAPL, GOOG)", universe.Size())
	}
}

func TestResolve_SymbolsAreSorted(t *testing.T) {
	resolver := NewResolver(zerolog.Nop())

	constituents := map[string]string{
		"MSFT": "Microsoft", "AAPL": "Apple", "NVDA": "NVIDIA", "AMD": "AMD",
	}

	universe, err := resolver.Resolve(constituents, constituents)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	symbols := universe.Symbols()
	for i := 1; i < len(symbols); i++ {
		if symbols[i-1] >= symbols[i] {
			t.Fatalf("symbols not in lexicographic order: %v", symbols)
		}
	}
}

func TestResolve_EmptyIntersection(t *testing.T) {
	resolver := NewResolver(zerolog.Nop())

	_, err := resolver.Resolve(map[string]string{"AAPL": "Apple"}, map[string]string{"XOM": "Exxon"})
	if !errors.Is(err, domain.ErrEmptyUniverse) {
		t.Errorf("expected ErrEmptyUniverse, got %v", err)
	}

	_, err = resolver.Resolve(nil, map[string]string{"AAPL": "Apple"})
	if !errors.Is(err, domain.ErrEmptyUniverse) {
		t.Errorf("expected ErrEmptyUniverse for missing provider data, got %v", err)
	}
}

func TestUniverse_NameFallsBackToSymbol(t *testing.T) {
	resolver := NewResolver(zerolog.Nop())

	universe, err := resolver.Resolve(
		map[string]string{"AAPL": "Apple Inc."},
		map[string]string{"AAPL": "Apple Inc."},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := universe.Name("AAPL"); got != "Apple Inc." {
		t.Errorf("Name(AAPL) = %q, want %q", got, "Apple Inc.")
	}
	if got := universe.Name("ZZZZ"); got != "ZZZZ" {
		t.Errorf("Name(ZZZZ) = %q, want symbol fallback", got)
	}
}
