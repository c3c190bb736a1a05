package indicator

// ema runs the recursive exponential smoothing over the full series with
// the given smoothing factor, seeded by the first value. No warm-up mask —
// callers apply their own.
func ema(series []float64, alpha float64) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 {
		return out
	}
	out[0] = series[0]
	for i := 1; i < len(series); i++ {
		out[i] = series[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// EMA computes the exponential moving average with smoothing factor
// α = 2/(period+1). The recursion is seeded by the first value and applied
// from the start of the series; the first period-1 positions are reported
// as NaN to match the other indicators' warm-up convention.
func EMA(series []float64, period int) []float64 {
	if period <= 0 {
		return undefined(make([]float64, len(series)), len(series))
	}
	out := ema(series, 2.0/float64(period+1))
	return undefined(out, period-1)
}

// TEMA computes the triple exponential moving average,
// 3·EMA1 − 3·EMA2 + EMA3, where EMA2 and EMA3 are EMAs of EMA1 and EMA2
// with the same period. The nesting cancels most of the lag a single EMA
// carries, so TEMA reacts faster to a step in the input.
func TEMA(series []float64, period int) []float64 {
	if period <= 0 {
		return undefined(make([]float64, len(series)), len(series))
	}
	alpha := 2.0 / float64(period+1)
	e1 := ema(series, alpha)
	e2 := ema(e1, alpha)
	e3 := ema(e2, alpha)
	out := make([]float64, len(series))
	for i := range out {
		out[i] = 3*e1[i] - 3*e2[i] + e3[i]
	}
	return undefined(out, period-1)
}
