package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned by KV.Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// KV is the persistence boundary for the engine. Values are opaque bytes;
// callers encode them as JSON.
type KV interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Record layout.
const (
	// RatingsKey holds the rating/confidence snapshot of every skill.
	RatingsKey = "catalog:ratings"

	// HistoryKey holds the capped session history index.
	HistoryKey = "session:history"

	// ActiveIndexKey lists the session IDs that have a crash-recovery snapshot.
	ActiveIndexKey = "session:active:index"
)

// SessionKey returns the key of a finished session body.
func SessionKey(gameID string, start time.Time) string {
	return "session:" + gameID + ":" + strconv.FormatInt(start.UnixMilli(), 10)
}

// ActiveSessionKey returns the key of the in-progress snapshot for a session.
func ActiveSessionKey(sessionID string) string {
	return "session:active:" + sessionID
}

// GetJSON loads key and decodes it into v.
// Returns ErrNotFound (wrapped) if the key has no value.
func GetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
