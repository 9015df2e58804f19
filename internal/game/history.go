package game

import (
	"sync"
	"time"
)

const (
	DEFAULT_HISTORY_SIZE = 20
	MAX_HISTORY_SIZE     = 100
)

// HistoryEntry is one resolved round.
type HistoryEntry struct {
	RoundID    uint64    `json:"round_id"`
	CrashPoint float64   `json:"crash_point"`
	Aborted    bool      `json:"aborted,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// History is a fixed-capacity ring of crash points, most recent first.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
	head    int // next write position
	size    int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DEFAULT_HISTORY_SIZE
	}
	return &History{entries: make([]HistoryEntry, capacity)}
}

// Push adds an entry, evicting the oldest once full.
func (h *History) Push(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushLocked(e)
}

func (h *History) pushLocked(e HistoryEntry) {
	h.entries[h.head] = e
	h.head = (h.head + 1) % len(h.entries)
	if h.size < len(h.entries) {
		h.size++
	}
}

// Restore replaces the contents with entries given most recent first.
func (h *History) Restore(entries []HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head, h.size = 0, 0
	if len(entries) > len(h.entries) {
		entries = entries[:len(h.entries)]
	}
	for i := len(entries) - 1; i >= 0; i-- {
		h.pushLocked(entries[i])
	}
}

// Entries returns a copy, most recent first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]HistoryEntry, 0, h.size)
	for i := 1; i <= h.size; i++ {
		idx := (h.head - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// CrashPoints returns just the multipliers, most recent first.
func (h *History) CrashPoints() []float64 {
	entries := h.Entries()
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.CrashPoint
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Cap() int {
	return len(h.entries)
}
