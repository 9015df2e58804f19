package game

import "math"

const (
	PREDICTION_WINDOW      = 20
	PREDICTION_MIN_SAMPLES = 5
	PREDICTION_DEFAULT     = 1.0
)

// PredictNext fits a least-squares line through the most recent crash points
// and extrapolates one round ahead. history is newest first, as returned by
// History.CrashPoints. The result is a display hint only; crash points come
// from the generator and are independent of one another.
func PredictNext(history []float64) float64 {
	if len(history) > PREDICTION_WINDOW {
		history = history[:PREDICTION_WINDOW]
	}
	n := len(history)
	if n < PREDICTION_MIN_SAMPLES {
		return PREDICTION_DEFAULT
	}

	// x runs oldest to newest.
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range history {
		x := float64(n - 1 - i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	slope := (fn*sumXY - sumX*sumY) / (fn*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	next := intercept + slope*fn
	if math.IsNaN(next) || math.IsInf(next, 0) {
		return PREDICTION_DEFAULT
	}
	if next < MIN_MULTIPLIER {
		next = MIN_MULTIPLIER
	}
	return math.Round(next*100) / 100
}
