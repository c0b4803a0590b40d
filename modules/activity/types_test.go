package activity

import (
	"testing"
	"time"
)

func TestActivityStore_LastActivityMonotonic(t *testing.T) {
	store := NewActivityStore()
	later := time.Now()
	earlier := later.Add(-time.Minute)

	store.RecordJoin("general", later)
	store.RecordLeave("general", false, earlier)

	ra, _ := store.Get("general")
	if !ra.LastActivity.Equal(later) {
		t.Errorf("LastActivity = %v, want %v", ra.LastActivity, later)
	}
}

func TestActivityStore_EvictsOldestRoom(t *testing.T) {
	store := NewActivityStoreWithLimit(2)
	base := time.Now()

	store.RecordJoin("a", base)
	store.RecordJoin("b", base.Add(time.Second))
	store.RecordJoin("c", base.Add(2*time.Second))

	if _, ok := store.Get("a"); ok {
		t.Error("expected room a to be evicted")
	}

	all := store.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d rooms, want 2", len(all))
	}
	if all[0].Room != "b" || all[1].Room != "c" {
		t.Errorf("All() = %v, want rooms b, c", all)
	}
}

func TestActivityStore_GetUnknown(t *testing.T) {
	store := NewActivityStore()

	if _, ok := store.Get("nowhere"); ok {
		t.Error("expected no activity for unknown room")
	}
}
