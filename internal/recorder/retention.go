package recorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const DEFAULT_RETENTION_CRON = "0 4 * * *"

// Retention prunes archived rounds on a cron schedule.
type Retention struct {
	cron   *cron.Cron
	pruner Pruner
	keep   time.Duration
	now    func() time.Time
}

// NewRetention schedules pruning of rounds older than keep. spec uses the standard
// five-field cron format.
func NewRetention(pruner Pruner, spec string, keep time.Duration) (*Retention, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", keep)
	}
	r := &Retention{
		cron:   cron.New(),
		pruner: pruner,
		keep:   keep,
		now:    time.Now,
	}
	if _, err := r.cron.AddFunc(spec, r.prune); err != nil {
		return nil, fmt.Errorf("register retention task: %w", err)
	}
	return r, nil
}

func (r *Retention) Start() {
	r.cron.Start()
	log.Printf("[RECORDER] retention started, keeping %s", r.keep)
}

func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
	log.Println("[RECORDER] retention stopped")
}

// RunNow prunes immediately.
func (r *Retention) RunNow(ctx context.Context) (int64, error) {
	return r.pruner.PruneRounds(ctx, r.now().Add(-r.keep))
}

func (r *Retention) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := r.RunNow(ctx)
	if err != nil {
		log.Printf("[RECORDER] prune failed: %v", err)
		return
	}
	log.Printf("[RECORDER] pruned %d rounds", n)
}
