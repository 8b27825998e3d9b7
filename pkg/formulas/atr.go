package formulas

import "math"

// TrueRange computes the true range series for aligned high/low/close series.
// The true range of a period is the largest of:
//   - high - low
//   - |high - previous close|
//   - |low - previous close|
//
// The first period has no previous close, so its true range is high - low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n {
		return nil
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// WilderATR computes the Average True Range with Wilder's recursive smoothing,
// seeded with the first true range and smoothed over the entire series:
//
//	atr[0] = tr[0]
//	atr[i] = atr[i-1] + (tr[i] - atr[i-1]) / period
//
// The full series is returned so callers can average a trailing window after
// the smoothing has consumed all available history.
func WilderATR(highs, lows, closes []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	tr := TrueRange(highs, lows, closes)
	if tr == nil {
		return nil
	}

	alpha := 1.0 / float64(period)
	atr := make([]float64, len(tr))
	atr[0] = tr[0]
	for i := 1; i < len(tr); i++ {
		atr[i] = atr[i-1] + alpha*(tr[i]-atr[i-1])
	}
	return atr
}
