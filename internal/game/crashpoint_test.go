package game

import (
	"errors"
	"math"
	"testing"

	"github.com/lameck-sudo/aviator-game/internal/rng"
)

func TestComputeCrashPoint(t *testing.T) {
	tests := []struct {
		name      string
		draw      float64
		houseEdge float64
		want      float64
	}{
		{"zero draw no edge", 0, 0, 1.00},
		{"zero draw clamps to minimum", 0, 0.01, 1.00},
		{"fifth draw", 0.2, 0.01, 3.96},
		{"half draw no edge", 0.5, 0, 8.50},
		{"tenth draw", 0.1, 0.01, 2.48},
		{"just below one", 0.9999999, 0.01, 15.84},
		{"max edge", 0.5, MAX_HOUSE_EDGE, 6.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeCrashPoint(tt.draw, tt.houseEdge); got != tt.want {
				t.Errorf("ComputeCrashPoint(%v, %v) = %v, want %v", tt.draw, tt.houseEdge, got, tt.want)
			}
		})
	}
}

func TestComputeCrashPoint_Bounds(t *testing.T) {
	gen := rng.New(5489)
	for i := 0; i < 100000; i++ {
		c := ComputeCrashPoint(gen.Float64(), HOUSE_EDGE)
		if c < MIN_MULTIPLIER || c > CRASH_SPREAD+1 {
			t.Fatalf("crash point %v out of range", c)
		}
		if math.Abs(c*100-math.Round(c*100)) > 1e-6 {
			t.Fatalf("crash point %v has more than two decimals", c)
		}
	}
}

func TestComputeCrashPoint_EdgeLowersPayout(t *testing.T) {
	for _, draw := range []float64{0.2, 0.4, 0.6, 0.8} {
		if ComputeCrashPoint(draw, 0.05) > ComputeCrashPoint(draw, 0) {
			t.Errorf("edge 0.05 raised crash point for draw %v", draw)
		}
	}
}

func TestValidateHouseEdge(t *testing.T) {
	tests := []struct {
		edge    float64
		wantErr bool
	}{
		{0, false},
		{HOUSE_EDGE, false},
		{MAX_HOUSE_EDGE, false},
		{-0.01, true},
		{MAX_HOUSE_EDGE + 0.01, true},
		{1, true},
		{math.NaN(), true},
	}

	for _, tt := range tests {
		err := ValidateHouseEdge(tt.edge)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHouseEdge(%v) error = %v, wantErr %v", tt.edge, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidHouseEdge) {
			t.Errorf("ValidateHouseEdge(%v) error = %v, want %v", tt.edge, err, ErrInvalidHouseEdge)
		}
	}
}

func BenchmarkComputeCrashPoint(b *testing.B) {
	gen := rng.New(1)
	for i := 0; i < b.N; i++ {
		ComputeCrashPoint(gen.Float64(), HOUSE_EDGE)
	}
}
