package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"scanengine/internal/schedule"
	"scanengine/internal/store"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	local, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local.Client
}

func testSnapshot(t *testing.T) Snapshot {
	t.Helper()
	late := schedule.TimeOfDay(7*60 + 15)
	return Snapshot{
		EventID:   "evt-1",
		Title:     "Foundation Day",
		Venue:     "Main Gym",
		StartDate: "2025-03-10",
		EndDate:   "2025-03-10",
		Schedule: schedule.Schedule{
			Version: 1,
			Days: []schedule.Day{{
				Date: "2025-03-10",
				Sessions: []schedule.Session{{
					ID: "s-mi", Name: "Morning In",
					Period: schedule.PeriodMorning, Direction: schedule.DirectionIn,
					OpensAt: 7 * 60, ClosesAt: 8 * 60, LateAfter: &late,
				}},
			}},
		},
		DownloadedAt: time.Unix(1741590000, 0).UTC(),
	}
}

func testStudents() []AllowedStudent {
	return []AllowedStudent{
		{EventID: "evt-1", StudentID: "stu-1", CredentialHash: "hash-1", FullName: "Ana Reyes", Grade: "10", Section: "A"},
		{EventID: "evt-1", StudentID: "stu-2", CredentialHash: "hash-2", FullName: "Ben Cruz", Grade: "10", Section: "B"},
	}
}

func TestSaveAndGetSnapshot(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	snap := testSnapshot(t)
	if err := repo.SaveSnapshot(ctx, snap, testStudents()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := repo.Get(ctx, "evt-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got.Title != snap.Title || got.Venue != snap.Venue {
		t.Errorf("metadata mismatch: %+v", got)
	}
	if len(got.Schedule.Days) != 1 || len(got.Schedule.Days[0].Sessions) != 1 {
		t.Fatalf("schedule did not survive round trip: %+v", got.Schedule)
	}
	sess := got.Schedule.Days[0].Sessions[0]
	if sess.LateAfter == nil || *sess.LateAfter != schedule.TimeOfDay(7*60+15) {
		t.Errorf("late threshold lost: %+v", sess.LateAfter)
	}
	if !got.DownloadedAt.Equal(snap.DownloadedAt) {
		t.Errorf("downloaded at = %v, want %v", got.DownloadedAt, snap.DownloadedAt)
	}
}

func TestGetMissingSnapshot(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	got, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing snapshot, got %+v", got)
	}
}

func TestLookupAllowed(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	if err := repo.SaveSnapshot(ctx, testSnapshot(t), testStudents()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	s, err := repo.LookupAllowed(ctx, "evt-1", "hash-2")
	if err != nil {
		t.Fatalf("LookupAllowed: %v", err)
	}
	if s == nil || s.StudentID != "stu-2" {
		t.Errorf("lookup hash-2 = %+v, want stu-2", s)
	}

	s, err = repo.LookupAllowed(ctx, "evt-1", "unknown")
	if err != nil {
		t.Fatalf("LookupAllowed miss: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil for unregistered credential, got %+v", s)
	}

	// Allowlists are scoped per event.
	s, err = repo.LookupAllowed(ctx, "evt-other", "hash-1")
	if err != nil {
		t.Fatalf("LookupAllowed other event: %v", err)
	}
	if s != nil {
		t.Errorf("credential leaked across events: %+v", s)
	}
}

func TestBulkReplaceIsWholesale(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	snap := testSnapshot(t)
	if err := repo.SaveSnapshot(ctx, snap, testStudents()); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	replacement := []AllowedStudent{
		{EventID: "evt-1", StudentID: "stu-3", CredentialHash: "hash-3", FullName: "Cara Lim"},
	}
	if err := repo.SaveSnapshot(ctx, snap, replacement); err != nil {
		t.Fatalf("replace save: %v", err)
	}

	n, err := repo.Count(ctx, "evt-1")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after replace = %d, want 1", n)
	}
	if s, _ := repo.LookupAllowed(ctx, "evt-1", "hash-1"); s != nil {
		t.Errorf("old allowlist row survived replace: %+v", s)
	}
	if s, _ := repo.LookupAllowed(ctx, "evt-1", "hash-3"); s == nil {
		t.Error("new allowlist row missing after replace")
	}
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	if err := repo.SaveSnapshot(ctx, testSnapshot(t), testStudents()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	if err := repo.Delete(ctx, "evt-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if snap, _ := repo.Get(ctx, "evt-1"); snap != nil {
		t.Error("snapshot survived delete")
	}
	if n, _ := repo.Count(ctx, "evt-1"); n != 0 {
		t.Errorf("allowlist count after delete = %d, want 0", n)
	}
}

func TestSaveSnapshotRequiresEventID(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	if err := repo.SaveSnapshot(context.Background(), Snapshot{}, nil); err == nil {
		t.Fatal("expected error for empty event id")
	}
}
