package game

import "math"

// MultiplierAt returns the multiplier after ticks steps of compounding growth.
func MultiplierAt(ticks int, growthRate float64) float64 {
	if ticks <= 0 {
		return MIN_MULTIPLIER
	}
	return math.Pow(1+growthRate, float64(ticks))
}

// nextMultiplier advances the multiplier by one tick.
func nextMultiplier(current, growthRate float64) float64 {
	return current + current*growthRate
}

// displayMultiplier truncates to two decimals so clients never see a value above the
// real one. The epsilon keeps exact two-decimal values like 2.37 from flooring to 2.36.
func displayMultiplier(m float64) float64 {
	return math.Floor(m*100+1e-9) / 100
}
