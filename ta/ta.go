// Package ta computes technical indicators over float series.
//
// The scalar functions compute the indicator on the tail of the series, the
// *Series functions compute it at every index. Series have the same length as
// their input, values that cannot be computed yet (warm-up) are NaN. A NaN in
// the input makes every window containing it NaN.
package ta

import "math"

// SMA returns the simple moving average of the last n values.
func SMA(values []float64, n int) float64 {
	if len(values) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(values) - n; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(n)
}

// RSI returns the relative strength index of the last period changes.
func RSI(values []float64, period int) float64 {
	if len(values) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - values[i-1]
		if math.IsNaN(d) {
			return math.NaN()
		}
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// StdDev returns the population standard deviation of the last n values.
func StdDev(values []float64, n int) float64 {
	if len(values) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(values, n)
	s := 0.0
	for i := len(values) - n; i < len(values); i++ {
		d := values[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

// Bollinger returns the bands k standard deviations around the n values SMA.
func Bollinger(values []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(values, n)
	sd := StdDev(values, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// trueRange returns the true range at index i.
func trueRange(highs, lows, closes []float64, i int) float64 {
	tr := highs[i] - lows[i]
	if i == 0 {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
}

// ATR returns the average true range over the last period values.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	if len(closes) < period || period <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		sum += trueRange(highs, lows, closes, i)
	}
	return sum / float64(period)
}

// ZScore returns how many standard deviations the last value is from the n values mean.
func ZScore(values []float64, n int) float64 {
	sd := StdDev(values, n)
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	return (values[len(values)-1] - SMA(values, n)) / sd
}

// Beta returns the regression slope of the last n returns of values against
// the returns of reference.
func Beta(values, reference []float64, n int) float64 {
	if len(values) != len(reference) || len(values) < n+1 || n <= 1 {
		return math.NaN()
	}
	rx := Returns(values[len(values)-n-1:], 1)[1:]
	ry := Returns(reference[len(reference)-n-1:], 1)[1:]
	mx, my := SMA(rx, n), SMA(ry, n)
	cov, v := 0.0, 0.0
	for i := range rx {
		cov += (rx[i] - mx) * (ry[i] - my)
		v += (ry[i] - my) * (ry[i] - my)
	}
	if v == 0 || math.IsNaN(v) {
		return math.NaN()
	}
	return cov / v
}

// rolling evaluates f on every prefix of values.
func rolling(values []float64, f func(prefix []float64) float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = f(values[:i+1])
	}
	return out
}

// SMASeries returns the n values simple moving average at every index.
func SMASeries(values []float64, n int) []float64 {
	return rolling(values, func(p []float64) float64 { return SMA(p, n) })
}

// EMASeries returns the exponential moving average with smoothing 2/(n+1). It
// is seeded with the SMA of the first n values and reseeded after a NaN.
func EMASeries(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	alpha := 2 / float64(n+1)
	prev := math.NaN()
	for i := range values {
		if math.IsNaN(prev) {
			prev = SMA(values[:i+1], n)
		} else {
			prev = alpha*values[i] + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// RSISeries returns the period RSI at every index.
func RSISeries(values []float64, period int) []float64 {
	return rolling(values, func(p []float64) float64 { return RSI(p, period) })
}

// StdDevSeries returns the n values standard deviation at every index.
func StdDevSeries(values []float64, n int) []float64 {
	return rolling(values, func(p []float64) float64 { return StdDev(p, n) })
}

// BollingerSeries returns the Bollinger bands at every index.
func BollingerSeries(values []float64, n int, k float64) (mid, up, low []float64) {
	mid, up, low = make([]float64, len(values)), make([]float64, len(values)), make([]float64, len(values))
	for i := range values {
		mid[i], up[i], low[i] = Bollinger(values[:i+1], n, k)
	}
	return
}

// ATRSeries returns the period ATR at every index.
func ATRSeries(highs, lows, closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		out[i] = ATR(highs[:i+1], lows[:i+1], closes[:i+1], period)
	}
	return out
}

// ZScoreSeries returns the n values z-score at every index.
func ZScoreSeries(values []float64, n int) []float64 {
	return rolling(values, func(p []float64) float64 { return ZScore(p, n) })
}

// BetaSeries returns the rolling n returns beta of values against reference.
func BetaSeries(values, reference []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = Beta(values[:i+1], reference[:i+1], n)
	}
	return out
}

// Returns returns the relative change over lag values: x[i]/x[i-lag] - 1.
func Returns(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < lag || lag <= 0 || values[i-lag] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-lag] - 1
	}
	return out
}

// Diff returns the seasonal difference over period values: x[i] - x[i-period].
func Diff(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < period || period <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-period]
	}
	return out
}

// Ratio returns values divided by reference, NaN where reference is zero.
func Ratio(values, reference []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i >= len(reference) || reference[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] / reference[i]
	}
	return out
}
