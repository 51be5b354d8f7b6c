package seen

import (
	"path/filepath"
	"testing"
	"time"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestContainsAfterMark(t *testing.T) {
	s := NewStore(10 * time.Minute)
	if s.Contains("a", base) {
		t.Fatal("empty store should not contain anything")
	}
	s.Mark("a", base)
	if !s.Contains("a", base.Add(time.Minute)) {
		t.Fatal("marked id should be contained within retention")
	}
	if s.Contains("b", base) {
		t.Fatal("unmarked id should not be contained")
	}
}

func TestExpiryAndPrune(t *testing.T) {
	s := NewStore(10 * time.Minute)
	s.Mark("a", base)
	s.Mark("b", base.Add(5*time.Minute))

	later := base.Add(11 * time.Minute)
	if s.Contains("a", later) {
		t.Fatal("expired id should not be contained")
	}
	if !s.Contains("b", later) {
		t.Fatal("live id should still be contained")
	}

	if removed := s.Prune(later); removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", s.Len())
	}
}

func TestMarkRefreshesTimestamp(t *testing.T) {
	s := NewStore(10 * time.Minute)
	s.Mark("a", base)
	s.Mark("a", base.Add(9*time.Minute))

	if s.Len() != 1 {
		t.Fatalf("refresh should not duplicate entries, len=%d", s.Len())
	}
	if !s.Contains("a", base.Add(15*time.Minute)) {
		t.Fatal("refreshed id should survive past the original expiry")
	}
}

func TestPruneEvictsOldestFirst(t *testing.T) {
	s := NewStore(time.Minute)
	for i, id := range []string{"a", "b", "c"} {
		s.Mark(id, base.Add(time.Duration(i)*20*time.Second))
	}
	s.Prune(base.Add(80 * time.Second))

	if s.Contains("a", base.Add(80*time.Second)) {
		t.Fatal("oldest entry should be evicted")
	}
	if !s.Contains("c", base.Add(80*time.Second)) {
		t.Fatal("newest entry should survive")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	s := NewStore(10 * time.Minute)
	s.Mark("a", base)
	s.Mark("b", base.Add(time.Minute))

	if err := WriteFile(path, s); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	restored, err := ReadFile(path, 10*time.Minute, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !restored.Contains("a", base.Add(2*time.Minute)) || !restored.Contains("b", base.Add(2*time.Minute)) {
		t.Fatal("restored store should contain both ids")
	}

	// Timestamps are persisted: TTL applies across the restart boundary.
	if restored.Contains("a", base.Add(11*time.Minute)) {
		t.Fatal("restored entry should expire on its original schedule")
	}
}

func TestReadFileDropsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	s := NewStore(time.Minute)
	s.Mark("stale", base)
	if err := WriteFile(path, s); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	restored, err := ReadFile(path, time.Minute, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if restored.Len() != 0 {
		t.Fatalf("expired entries should be dropped on load, len=%d", restored.Len())
	}
}

func TestReadFileMissing(t *testing.T) {
	restored, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"), time.Minute, base)
	if err != nil {
		t.Fatalf("missing snapshot should not error: %v", err)
	}
	if restored.Len() != 0 {
		t.Fatal("missing snapshot should yield an empty store")
	}
}
