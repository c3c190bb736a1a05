package indicator

import (
	"math"
	"testing"

	"marketlens/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertNaNPrefix(t *testing.T, label string, out []float64, n int) {
	t.Helper()
	for i := 0; i < n && i < len(out); i++ {
		if !math.IsNaN(out[i]) {
			t.Errorf("%s: index %d should be NaN during warm-up, got %.6f", label, i, out[i])
		}
	}
	for i := n; i < len(out); i++ {
		if math.IsNaN(out[i]) {
			t.Errorf("%s: index %d should be defined, got NaN", label, i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// MA
// ────────────────────────────────────────────────────────────

func TestMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated MA(3):
	// Prices: 100, 102, 104, 103, 105
	// MA at index 2: (100+102+104)/3 = 102.0
	// MA at index 3: (102+104+103)/3 = 103.0
	// MA at index 4: (104+103+105)/3 = 104.0
	series := []float64{100, 102, 104, 103, 105}
	out := MA(series, 3)

	if len(out) != len(series) {
		t.Fatalf("MA output length %d, want %d", len(out), len(series))
	}
	assertNaNPrefix(t, "MA(3)", out, 2)
	assertClose(t, "MA(3)[2]", out[2], 102.0, 0.0001)
	assertClose(t, "MA(3)[3]", out[3], 103.0, 0.0001)
	assertClose(t, "MA(3)[4]", out[4], 104.0, 0.0001)
}

func TestMA_WindowSlides(t *testing.T) {
	// Prices: 10..16, MA(5) at index 4: 12, index 5: 13, index 6: 14
	series := []float64{10, 11, 12, 13, 14, 15, 16}
	out := MA(series, 5)
	assertClose(t, "MA(5)[4]", out[4], 12.0, 0.0001)
	assertClose(t, "MA(5)[5]", out[5], 13.0, 0.0001)
	assertClose(t, "MA(5)[6]", out[6], 14.0, 0.0001)
}

// ────────────────────────────────────────────────────────────
// EMA
// ────────────────────────────────────────────────────────────

func TestEMA_Correctness_Period3(t *testing.T) {
	// α = 2/(3+1) = 0.5, seeded with the first value:
	// e[0] = 100
	// e[1] = 102*0.5 + 100*0.5   = 101.0
	// e[2] = 104*0.5 + 101*0.5   = 102.5
	// e[3] = 103*0.5 + 102.5*0.5 = 102.75
	// e[4] = 105*0.5 + 102.75*0.5 = 103.875
	// Indices 0..1 are masked as warm-up.
	series := []float64{100, 102, 104, 103, 105}
	out := EMA(series, 3)

	assertNaNPrefix(t, "EMA(3)", out, 2)
	assertClose(t, "EMA(3)[2]", out[2], 102.5, 0.0001)
	assertClose(t, "EMA(3)[3]", out[3], 102.75, 0.0001)
	assertClose(t, "EMA(3)[4]", out[4], 103.875, 0.0001)
}

func TestEMA_Period1_IsIdentity(t *testing.T) {
	// α = 2/2 = 1 → output equals input at every index.
	series := []float64{42, 17, 99.5, 3, 3, 60}
	out := EMA(series, 1)
	for i := range series {
		assertClose(t, "EMA(1)", out[i], series[i], 0.0000001)
	}
}

func TestEMA_SameLengthAsInput(t *testing.T) {
	for _, n := range []int{0, 1, 5, 50} {
		series := make([]float64, n)
		for i := range series {
			series[i] = float64(i)
		}
		if got := len(EMA(series, 14)); got != n {
			t.Errorf("EMA length for n=%d: got %d", n, got)
		}
	}
}

// ────────────────────────────────────────────────────────────
// TEMA
// ────────────────────────────────────────────────────────────

func TestTEMA_ReactsFasterThanEMA_ToStep(t *testing.T) {
	// Step series: 40 samples at 100, then 40 at 200. TEMA must cross the
	// midpoint (150) strictly earlier than a single EMA of the same period.
	series := make([]float64, 80)
	for i := range series {
		if i < 40 {
			series[i] = 100
		} else {
			series[i] = 200
		}
	}
	const period = 10
	ema := EMA(series, period)
	tema := TEMA(series, period)

	cross := func(out []float64) int {
		for i := 40; i < len(out); i++ {
			if out[i] >= 150 {
				return i
			}
		}
		return len(out)
	}
	emaCross, temaCross := cross(ema), cross(tema)
	if temaCross >= emaCross {
		t.Errorf("TEMA crossed midpoint at %d, EMA at %d: TEMA should be strictly earlier", temaCross, emaCross)
	}
}

func TestTEMA_TracksFlatSeries(t *testing.T) {
	// On a constant series every nested EMA equals the constant, so
	// 3c − 3c + c = c.
	series := []float64{50, 50, 50, 50, 50, 50, 50, 50}
	out := TEMA(series, 3)
	for i := 2; i < len(out); i++ {
		assertClose(t, "TEMA flat", out[i], 50.0, 0.0001)
	}
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_Bounds(t *testing.T) {
	// A noisy series with gains and losses: every defined value in [0,100].
	series := []float64{44, 47, 45, 50, 43, 48, 49, 41, 52, 47, 55, 50, 53, 49, 58}
	out := RSI(series, 5)
	assertNaNPrefix(t, "RSI(5)", out, 5)
	for i := 5; i < len(out); i++ {
		if out[i] < 0 || out[i] > 100 {
			t.Errorf("RSI[%d] = %.4f out of [0,100]", i, out[i])
		}
	}
}

func TestRSI_AllGains_SentinelIs100(t *testing.T) {
	// Strictly increasing series: avgLoss is zero everywhere, so the
	// documented sentinel 100 applies at every defined index.
	series := []float64{10, 11, 12, 13, 14, 15, 16, 17}
	out := RSI(series, 4)
	for i := 4; i < len(out); i++ {
		assertClose(t, "RSI all-gains", out[i], 100.0, 0.0001)
	}
}

func TestRSI_Correctness_Period3(t *testing.T) {
	// Prices: 10, 11, 10, 12, 11
	// Deltas:     +1, -1, +2, -1
	// Index 3: gains window {1,0,2} mean=1, losses {0,1,0} mean=1/3
	//          RS=3, RSI = 100 − 100/4 = 75
	// Index 4: gains {0,2,0} mean=2/3, losses {1,0,1} mean=2/3
	//          RS=1, RSI = 50
	series := []float64{10, 11, 10, 12, 11}
	out := RSI(series, 3)
	assertClose(t, "RSI(3)[3]", out[3], 75.0, 0.0001)
	assertClose(t, "RSI(3)[4]", out[4], 50.0, 0.0001)
}

// ────────────────────────────────────────────────────────────
// ATR + stops
// ────────────────────────────────────────────────────────────

func TestATR_SMA_EqualsTrailingMeanOfSpread(t *testing.T) {
	highs := []float64{12, 15, 14, 18, 16}
	lows := []float64{10, 11, 13, 12, 13}
	// Spreads: 2, 4, 1, 6, 3
	// SMA(3) at index 2: (2+4+1)/3 = 7/3, index 3: 11/3, index 4: 10/3
	out := ATR(highs, lows, 3, model.SmoothSMA)
	assertNaNPrefix(t, "ATR SMA", out, 2)
	assertClose(t, "ATR SMA[2]", out[2], 7.0/3.0, 0.0001)
	assertClose(t, "ATR SMA[3]", out[3], 11.0/3.0, 0.0001)
	assertClose(t, "ATR SMA[4]", out[4], 10.0/3.0, 0.0001)
}

func TestATR_RMA_Recursion(t *testing.T) {
	highs := []float64{12, 15, 14, 18}
	lows := []float64{10, 11, 13, 12}
	// Spreads: 2, 4, 1, 6; α = 1/2, seeded at 2:
	// r[1] = 4*0.5 + 2*0.5 = 3
	// r[2] = 1*0.5 + 3*0.5 = 2
	// r[3] = 6*0.5 + 2*0.5 = 4
	out := ATR(highs, lows, 2, model.SmoothRMA)
	assertNaNPrefix(t, "ATR RMA", out, 1)
	assertClose(t, "ATR RMA[1]", out[1], 3.0, 0.0001)
	assertClose(t, "ATR RMA[2]", out[2], 2.0, 0.0001)
	assertClose(t, "ATR RMA[3]", out[3], 4.0, 0.0001)
}

func TestATR_WMA_WeightsNormalized(t *testing.T) {
	highs := []float64{12, 15, 14}
	lows := []float64{10, 11, 13}
	// Spreads: 2, 4, 1; WMA(3) at index 2 with weights 1,2,3 on oldest→newest:
	// (2*1 + 4*2 + 1*3) / 6 = 13/6
	out := ATR(highs, lows, 3, model.SmoothWMA)
	assertClose(t, "ATR WMA[2]", out[2], 13.0/6.0, 0.0001)
}

func TestATR_WMA_ConstantSpread_EqualsSMA(t *testing.T) {
	// With a constant spread, any normalized weighting reduces to the
	// spread itself — WMA and SMA must agree exactly.
	highs := []float64{10, 11, 12, 13, 14, 15}
	lows := []float64{7, 8, 9, 10, 11, 12}
	w := ATR(highs, lows, 4, model.SmoothWMA)
	s := ATR(highs, lows, 4, model.SmoothSMA)
	for i := 3; i < len(w); i++ {
		assertClose(t, "WMA vs SMA constant spread", w[i], s[i], 0.0000001)
	}
}

func TestStops_Bands(t *testing.T) {
	highs := []float64{12, 15}
	lows := []float64{10, 11}
	atr := []float64{2, 3}
	short, long := Stops(highs, lows, atr, 1.5)
	assertClose(t, "ShortStop[0]", short[0], 12+3, 0.0001)
	assertClose(t, "ShortStop[1]", short[1], 15+4.5, 0.0001)
	assertClose(t, "LongStop[0]", long[0], 10-3, 0.0001)
	assertClose(t, "LongStop[1]", long[1], 11-4.5, 0.0001)
}

func TestStops_PropagateNaN(t *testing.T) {
	highs := []float64{12, 15}
	lows := []float64{10, 11}
	atr := []float64{math.NaN(), 3}
	short, long := Stops(highs, lows, atr, 2)
	if !math.IsNaN(short[0]) || !math.IsNaN(long[0]) {
		t.Errorf("stops over NaN ATR should stay NaN, got short=%v long=%v", short[0], long[0])
	}
}
