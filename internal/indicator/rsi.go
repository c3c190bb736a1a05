package indicator

// RSI computes the relative strength index over the given period using a
// trailing simple mean of gains and losses (not Wilder smoothing): for each
// index, avgGain and avgLoss are the plain means of the last `period`
// up-moves and down-moves, RS = avgGain/avgLoss, RSI = 100 − 100/(1+RS).
//
// When avgLoss is zero the formula divides by zero; RSI is defined as the
// sentinel 100 in that case — every recent move was flat or up, which is
// maximal relative strength.
//
// The first delta needs two samples and the trailing mean needs period
// deltas, so the first `period` positions are NaN.
func RSI(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 || len(series) == 0 {
		return undefined(out, len(out))
	}

	gains := make([]float64, len(series))
	losses := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		delta := series[i] - series[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(series); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return undefined(out, period)
}
