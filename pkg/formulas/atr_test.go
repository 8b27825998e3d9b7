package formulas

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTrueRange_FirstPeriodIsHighMinusLow(t *testing.T) {
	highs := []float64{110, 120}
	lows := []float64{90, 100}
	closes := []float64{100, 115}

	tr := TrueRange(highs, lows, closes)
	if len(tr) != 2 {
		t.Fatalf("expected 2 values, got %d", len(tr))
	}
	if !almostEqual(tr[0], 20) {
		t.Errorf("first true range should be high-low = 20, got %v", tr[0])
	}
}

func TestTrueRange_UsesPreviousClose(t *testing.T) {
	// Gap down: previous close 200, next day trades 100-110. The range to
	// the previous close dominates the intraday range.
	highs := []float64{210, 110}
	lows := []float64{190, 100}
	closes := []float64{200, 105}

	tr := TrueRange(highs, lows, closes)
	if !almostEqual(tr[1], 100) {
		t.Errorf("expected |low - prev close| = 100, got %v", tr[1])
	}
}

func TestTrueRange_MismatchedLengths(t *testing.T) {
	if tr := TrueRange([]float64{1, 2}, []float64{1}, []float64{1, 2}); tr != nil {
		t.Errorf("expected nil for mismatched inputs, got %v", tr)
	}
	if tr := TrueRange(nil, nil, nil); tr != nil {
		t.Errorf("expected nil for empty inputs, got %v", tr)
	}
}

func TestWilderATR_SeedAndRecursion(t *testing.T) {
	// Constant candles: every TR is high-low = 10, so the smoothed series
	// stays at 10 regardless of period.
	highs := []float64{110, 110, 110, 110}
	lows := []float64{100, 100, 100, 100}
	closes := []float64{105, 105, 105, 105}

	atr := WilderATR(highs, lows, closes, 8)
	for i, v := range atr {
		if !almostEqual(v, 10) {
			t.Errorf("atr[%d] = %v, want 10", i, v)
		}
	}
}

func TestWilderATR_RecursiveSmoothing(t *testing.T) {
	// One explicit recursion step: atr[1] = atr[0] + (tr[1]-atr[0])/period
	highs := []float64{110, 130}
	lows := []float64{100, 110}
	closes := []float64{105, 120}

	atr := WilderATR(highs, lows, closes, 8)

	tr0 := 10.0
	tr1 := 25.0 // max(130-110, |130-105|, |110-105|)
	want := tr0 + (tr1-tr0)/8.0

	if !almostEqual(atr[0], tr0) {
		t.Errorf("atr[0] = %v, want seed %v", atr[0], tr0)
	}
	if !almostEqual(atr[1], want) {
		t.Errorf("atr[1] = %v, want %v", atr[1], want)
	}
}

func TestWilderATR_InvalidPeriod(t *testing.T) {
	if atr := WilderATR([]float64{1}, []float64{1}, []float64{1}, 0); atr != nil {
		t.Errorf("expected nil for period 0, got %v", atr)
	}
}

func TestWilderATR_DependsOnFullHistory(t *testing.T) {
	// The smoothing seeds at the first row, so truncating early history must
	// change the trailing values. This is the property that makes "smooth
	// everything, then average the tail" different from smoothing the tail.
	highs := []float64{200, 110, 110, 110, 110, 110, 110, 110, 110, 110}
	lows := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	closes := []float64{150, 105, 105, 105, 105, 105, 105, 105, 105, 105}

	full := WilderATR(highs, lows, closes, 8)
	truncated := WilderATR(highs[1:], lows[1:], closes[1:], 8)

	fullLast := full[len(full)-1]
	truncLast := truncated[len(truncated)-1]
	if almostEqual(fullLast, truncLast) {
		t.Errorf("trailing ATR should depend on early history: full %v vs truncated %v", fullLast, truncLast)
	}
}
