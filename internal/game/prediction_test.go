package game

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPredictNext(t *testing.T) {
	flatThenSpike := make([]float64, 0, 25)
	for i := 0; i < PREDICTION_WINDOW; i++ {
		flatThenSpike = append(flatThenSpike, 3)
	}
	flatThenSpike = append(flatThenSpike, 100, 200, 300, 400, 500)

	tests := []struct {
		name    string
		history []float64
		want    float64
	}{
		{"empty", nil, PREDICTION_DEFAULT},
		{"too few samples", []float64{5, 4, 3, 2}, PREDICTION_DEFAULT},
		{"constant", []float64{2, 2, 2, 2, 2}, 2},
		{"rising", []float64{5, 4, 3, 2, 1}, 6},
		{"falling clamps", []float64{1, 2, 3, 4, 5}, MIN_MULTIPLIER},
		{"rounded", []float64{1.6, 1.2, 1.4, 1.1, 1.3}, 1.53},
		{"older rounds ignored", flatThenSpike, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PredictNext(tt.history); got != tt.want {
				t.Errorf("PredictNext(%v) = %v, want %v", tt.history, got, tt.want)
			}
		})
	}
}

func TestRoundEndMessage_Prediction(t *testing.T) {
	msg := RoundEndMessage(7, 6, false, []float64{6, 5, 4, 3, 2})
	if msg.Prediction != 7 {
		t.Errorf("prediction = %v, want 7", msg.Prediction)
	}
	data, _ := json.Marshal(msg)
	if !strings.Contains(string(data), `"prediction":7`) {
		t.Errorf("round_end = %s, want prediction", data)
	}
}
