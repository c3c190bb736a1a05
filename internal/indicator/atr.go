package indicator

import "marketlens/internal/model"

// ATR computes the average true range where true range is simplified to the
// daily high-low spread (no prior-close term). The smoothing variant
// controls how the spread series is averaged:
//
//	RMA — recursive smoothing with α = 1/length, seeded by the first spread
//	SMA — trailing simple mean over length
//	EMA — recursive smoothing with α = 2/(length+1)
//	WMA — trailing weighted mean, linear weights 1..length (newest highest)
//
// highs and lows must be the same length. The first length-1 positions are
// NaN.
func ATR(highs, lows []float64, length int, smoothing model.AtrSmoothing) []float64 {
	n := len(highs)
	if length <= 0 || n == 0 || len(lows) != n {
		return undefined(make([]float64, n), n)
	}
	tr := make([]float64, n)
	for i := range tr {
		tr[i] = highs[i] - lows[i]
	}

	var out []float64
	switch smoothing {
	case model.SmoothSMA:
		return MA(tr, length) // MA already masks the warm-up
	case model.SmoothEMA:
		out = ema(tr, 2.0/float64(length+1))
	case model.SmoothWMA:
		out = wma(tr, length)
	default: // RMA
		out = ema(tr, 1.0/float64(length))
	}
	return undefined(out, length-1)
}

// wma computes the trailing linear-weighted mean: weights 1..length with
// the most recent value weighted highest, normalized by length·(length+1)/2.
func wma(series []float64, length int) []float64 {
	out := make([]float64, len(series))
	norm := float64(length*(length+1)) / 2.0
	for i := length - 1; i < len(series); i++ {
		sum := 0.0
		for j := 0; j < length; j++ {
			sum += series[i-j] * float64(length-j)
		}
		out[i] = sum / norm
	}
	return out
}

// Stops derives the two stop-loss bands from an ATR series:
// ShortStop = high + ATR·multiplier, LongStop = low − ATR·multiplier.
// Positions where atr is NaN stay NaN.
func Stops(highs, lows, atr []float64, multiplier float64) (short, long []float64) {
	short = make([]float64, len(atr))
	long = make([]float64, len(atr))
	for i := range atr {
		short[i] = highs[i] + atr[i]*multiplier
		long[i] = lows[i] - atr[i]*multiplier
	}
	return short, long
}
