package game

import (
	"fmt"
	"math"
)

const (
	MIN_MULTIPLIER = 1.00
	CRASH_SPREAD   = 15.0
	MAX_HOUSE_EDGE = 0.2
	HOUSE_EDGE     = 0.01 // 1%
)

// ValidateHouseEdge accepts edges in [0, MAX_HOUSE_EDGE].
func ValidateHouseEdge(houseEdge float64) error {
	if math.IsNaN(houseEdge) || houseEdge < 0 || houseEdge > MAX_HOUSE_EDGE {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrInvalidHouseEdge, houseEdge, MAX_HOUSE_EDGE)
	}
	return nil
}

// ComputeCrashPoint maps a uniform draw in [0,1) to a crash multiplier.
//
// The raw multiplier 1 + draw*15 is scaled down by the house edge, rounded to two
// decimals and clamped to MIN_MULTIPLIER.
func ComputeCrashPoint(draw, houseEdge float64) float64 {
	raw := 1 + draw*CRASH_SPREAD
	adjusted := raw * (1 - houseEdge)
	rounded := math.Round(adjusted*100) / 100
	if rounded < MIN_MULTIPLIER {
		return MIN_MULTIPLIER
	}
	return rounded
}
