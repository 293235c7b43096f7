package session

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/cogniz/internal/store"
)

// recentAccuracyCount is how many per-session accuracies ModuleStats reports.
const recentAccuracyCount = 10

// SessionAccuracy is the accuracy of one finished session.
type SessionAccuracy struct {
	SessionID  string    `json:"sessionId"`
	Timestamp  time.Time `json:"timestamp"`
	TrialCount int       `json:"trialCount"`
	Accuracy   float64   `json:"accuracy"`
}

// ModuleStats aggregates every stored session of one game.
type ModuleStats struct {
	GameID            string  `json:"gameId"`
	TotalSessions     int     `json:"totalSessions"`
	TotalTrials       int     `json:"totalTrials"`
	Accuracy          float64 `json:"accuracy"`
	AvgReactionTimeMs float64 `json:"avgReactionTimeMs"`
	// RecentAccuracies holds the last sessions, newest first.
	RecentAccuracies []SessionAccuracy `json:"recentAccuracies"`
	LastPlayed       *time.Time        `json:"lastPlayed,omitempty"`
}

// ModuleStats loads the history sessions of a game and aggregates their
// trials. Sessions whose body cannot be loaded are skipped.
func (t *Tracker) ModuleStats(ctx context.Context, gameID string) (*ModuleStats, error) {
	if _, ok := t.registry.Game(gameID); !ok {
		t.metrics.UsageError("module_stats")
		t.log.Warn("stats for unknown game", "game_id", gameID)
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}

	stats := &ModuleStats{GameID: gameID, RecentAccuracies: []SessionAccuracy{}}
	var all []Trial
	for _, e := range t.History(ctx) {
		if e.GameID != gameID {
			continue
		}
		s, ok := t.loadBody(ctx, e.StorageKey)
		if !ok {
			continue
		}
		if stats.LastPlayed == nil {
			last := e.Timestamp
			stats.LastPlayed = &last
		}
		stats.TotalSessions++
		all = append(all, s.Trials...)
		if len(stats.RecentAccuracies) < recentAccuracyCount {
			stats.RecentAccuracies = append(stats.RecentAccuracies, SessionAccuracy{
				SessionID:  s.ID,
				Timestamp:  e.Timestamp,
				TrialCount: len(s.Trials),
				Accuracy:   accuracy(s.Trials),
			})
		}
	}

	stats.TotalTrials = len(all)
	stats.Accuracy = accuracy(all)
	var rts []float64
	for _, tr := range all {
		if tr.ReactionTimeMs != nil {
			rts = append(rts, *tr.ReactionTimeMs)
		}
	}
	stats.AvgReactionTimeMs, _ = meanVariance(rts)
	return stats, nil
}

// loadBody returns a finished session from the cache or the store.
func (t *Tracker) loadBody(ctx context.Context, key string) (Session, bool) {
	t.mu.Lock()
	s, ok := t.bodies[key]
	t.mu.Unlock()
	if ok {
		return s, true
	}

	if err := store.GetJSON(ctx, t.kv, key, &s); err != nil {
		t.metrics.StorageError("load_session")
		t.log.Error("load session", "key", key, "error", err)
		return Session{}, false
	}
	t.mu.Lock()
	t.bodies[key] = s
	t.mu.Unlock()
	return s, true
}
