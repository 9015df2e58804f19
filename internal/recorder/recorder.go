package recorder

import (
	"context"
	"time"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

// Recorder archives resolved rounds for later analysis.
type Recorder interface {
	game.Archive
	Close() error
}

// Pruner drops archived rounds older than a cutoff.
type Pruner interface {
	PruneRounds(ctx context.Context, before time.Time) (int64, error)
}
