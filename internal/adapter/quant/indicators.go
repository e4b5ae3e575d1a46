package quant

import "math"

// SMA returns the simple moving average over the last window closes.
// ok is false when the series is shorter than the window.
func SMA(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// RSI returns the relative strength index over the last window deltas,
// using rolling mean gains and losses. ok is false when the series is
// shorter than window+1.
func RSI(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window+1 {
		return 0, false
	}

	var gains, losses float64
	start := len(closes) - window
	for i := start; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(window)
	avgLoss := losses / float64(window)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// DailyVolatility returns the standard deviation of log returns.
// ok is false with fewer than minPoints closes.
func DailyVolatility(closes []float64, minPoints int) (float64, bool) {
	if len(closes) < minPoints || len(closes) < 2 {
		return 0, false
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) < 2 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance), true
}
