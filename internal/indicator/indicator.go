// Package indicator provides technical indicator calculations over ordered
// price series.
//
// Every function takes a chronological []float64 and returns a slice of the
// same length. Positions where the indicator is not yet defined (the warm-up
// prefix) hold math.NaN; callers decide how to render the gap. All functions
// are pure — no state, no side effects, deterministic for a given input.
package indicator

import "math"

// undefined fills the first n positions of values with NaN and returns it.
func undefined(values []float64, n int) []float64 {
	if n > len(values) {
		n = len(values)
	}
	for i := 0; i < n; i++ {
		values[i] = math.NaN()
	}
	return values
}
