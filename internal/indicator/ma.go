package indicator

// MA computes the trailing simple moving average over the given period.
// Output[i] is the arithmetic mean of series[i-period+1..i]; the first
// period-1 positions are NaN. Runs in O(n) using a sliding sum.
func MA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 {
		return undefined(out, len(out))
	}
	sum := 0.0
	for i, v := range series {
		sum += v
		if i >= period {
			sum -= series[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return undefined(out, period-1)
}
