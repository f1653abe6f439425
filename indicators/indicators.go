// Package indicators provides the numeric transforms the strategies are built
// on. All functions are pure: they read only the closes passed in and return
// freshly allocated slices the same length as their input.
package indicators

// EMA returns the exponential moving average of closes with the given span.
//
// The series is seeded with closes[0]; each subsequent value is
// close*k + prev*(1-k) with k = 2/(span+1). Callers must pass at least one
// close.
func EMA(closes []float64, span int) []float64 {
	out := make([]float64, len(closes))
	k := 2.0 / float64(span+1)

	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI returns the Wilder-smoothed relative strength index over period.
//
// The first period entries are the neutral placeholder 50.0, not a true RSI:
// that window is too short to seed the smoothed averages, and downstream
// crossing logic compares consecutive values, so a flat 50 run cannot fabricate
// a threshold crossing on its own. From index period onward the smoothed
// average gain/loss recursion applies; a zero average loss is treated as an
// infinite ratio, giving RSI 100. Callers must pass at least one close.
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)

	for i := 0; i < n && i < period; i++ {
		out[i] = 50.0
	}
	if n <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		var gain, loss float64
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
