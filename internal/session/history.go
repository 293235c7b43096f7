package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/store"
)

// DefaultHistoryLimit is the number of sessions kept in the history index.
const DefaultHistoryLimit = 100

// HistoryEntry is the lightweight index record of a finished session.
type HistoryEntry struct {
	SessionID string `json:"sessionId"`
	GameID    string `json:"gameId"`
	// Timestamp is when the session ended.
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"durationMs"`
	TrialCount int       `json:"trialCount"`
	StorageKey string    `json:"storageKey"`
}

// historyIndex is the capped, newest-first list of finished sessions.
// It is loaded lazily; after that memory is authoritative.
type historyIndex struct {
	mu      sync.Mutex
	kv      store.KV
	limit   int
	entries []HistoryEntry
	loaded  bool
	log     *slog.Logger
	metrics *metrics.Metrics

	// evict removes the stored bodies of entries dropped from the index.
	// It runs after the index is persisted.
	evict func(context.Context, []HistoryEntry)
}

func (h *historyIndex) loadLocked(ctx context.Context) {
	if h.loaded {
		return
	}
	h.loaded = true

	var entries []HistoryEntry
	if err := store.GetJSON(ctx, h.kv, store.HistoryKey, &entries); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.metrics.StorageError("load_history")
			h.log.Error("load session history", "error", err)
		}
		return
	}
	h.entries = entries
	if len(h.entries) > h.limit {
		h.log.Info("trimming stored session history", "stored", len(h.entries), "limit", h.limit)
		h.trimLocked(ctx)
	}
}

// trimLocked drops entries past the limit, persists the index and then
// evicts the dropped sessions.
func (h *historyIndex) trimLocked(ctx context.Context) {
	var evicted []HistoryEntry
	if len(h.entries) > h.limit {
		evicted = slices.Clone(h.entries[h.limit:])
		h.entries = h.entries[:h.limit]
	}

	if err := store.SetJSON(ctx, h.kv, store.HistoryKey, h.entries); err != nil {
		h.metrics.StorageError("persist_history")
		h.log.Error("persist session history", "error", err)
	}
	if len(evicted) > 0 && h.evict != nil {
		h.evict(ctx, evicted)
	}
}

// list returns a copy of the index, newest first.
func (h *historyIndex) list(ctx context.Context) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)
	return slices.Clone(h.entries)
}

// add prepends e, evicting entries past the limit.
func (h *historyIndex) add(ctx context.Context, e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)

	h.entries = slices.Insert(h.entries, 0, e)
	h.trimLocked(ctx)
}

// reset drops and evicts every entry. It returns how many were dropped.
func (h *historyIndex) reset(ctx context.Context) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)

	dropped := h.entries
	h.entries = nil
	if err := h.kv.Remove(ctx, store.HistoryKey); err != nil {
		h.metrics.StorageError("reset_history")
		h.log.Error("reset session history", "error", err)
	}
	if len(dropped) > 0 && h.evict != nil {
		h.evict(ctx, dropped)
	}
	return len(dropped)
}
