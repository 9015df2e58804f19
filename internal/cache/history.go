package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/lameck-sudo/aviator-game/internal/game"
)

const (
	REDIS_KEY_HISTORY = "crash:history"
	HISTORY_RETAIN    = 100
)

// History stores resolved rounds in a capped Redis list, newest at the head.
type History struct {
	client *redis.Client
}

var _ game.HistoryStore = (*History)(nil)

func NewHistory(client *redis.Client) *History {
	return &History{client: client}
}

func (h *History) PushHistory(ctx context.Context, entry game.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	_, err = h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, REDIS_KEY_HISTORY, data)
		pipe.LTrim(ctx, REDIS_KEY_HISTORY, 0, HISTORY_RETAIN-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push history: %w", err)
	}
	return nil
}

// LoadHistory returns up to n entries, most recent first.
func (h *History) LoadHistory(ctx context.Context, n int) ([]game.HistoryEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := h.client.LRange(ctx, REDIS_KEY_HISTORY, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	entries := make([]game.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var e game.HistoryEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			log.Printf("[CACHE] Skipping bad history entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
