package seen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const snapshotVersion = 1

// snapshotRecord is the persisted form of a single seen entry. Timestamps are
// kept so the TTL keeps working across restarts instead of degrading into a
// permanent suppression list.
type snapshotRecord struct {
	ID     string `json:"id"`
	SeenAt int64  `json:"seen_at"`
}

type snapshotEnvelope struct {
	Version int              `json:"version"`
	Seen    []snapshotRecord `json:"seen"`
}

// WriteFile persists the full store to path. The write goes through a temp
// file and rename so a crash mid-write leaves the previous snapshot intact.
func WriteFile(path string, s *Store) error {
	s.mu.Lock()
	env := snapshotEnvelope{Version: snapshotVersion, Seen: make([]snapshotRecord, 0, len(s.order))}
	for _, rec := range s.order {
		env.Seen = append(env.Seen, snapshotRecord{ID: rec.id, SeenAt: rec.seenAt.Unix()})
	}
	s.mu.Unlock()

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal seen snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write seen snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace seen snapshot: %w", err)
	}
	return nil
}

// ReadFile restores a store from path. A missing file yields an empty store.
// Entries already past the retention window at load time are discarded.
func ReadFile(path string, retention time.Duration, now time.Time) (*Store, error) {
	store := NewStore(retention)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read seen snapshot: %w", err)
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode seen snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported seen snapshot version %d", env.Version)
	}

	for _, rec := range env.Seen {
		if rec.ID == "" {
			continue
		}
		seenAt := time.Unix(rec.SeenAt, 0)
		if store.expired(seenAt, now) {
			continue
		}
		store.order = append(store.order, record{id: rec.ID, seenAt: seenAt})
		store.index[rec.ID] = seenAt
	}
	return store, nil
}
