package recorder

import (
	"context"
	"time"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

// NoopRecorder is used when no archive is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRound(_ context.Context, _ game.RoundRecord) error { return nil }
func (n *NoopRecorder) PruneRounds(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}
func (n *NoopRecorder) Close() error { return nil }
