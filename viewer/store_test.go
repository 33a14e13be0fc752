package viewer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/riddlerrr/riddlebot/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres test")
	}
	dbx, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_, _ = dbx.Exec(`DELETE FROM viewers WHERE viewer_id LIKE 'test-%'`)
		_ = dbx.Close()
	})
	return NewStore(dbx)
}

func TestFindMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Find(context.Background(), "test-nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find missing = %v, want ErrNotFound", err)
	}
}

func TestUpsertIncrementCreatesThenAdds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.UpsertIncrement(ctx, "test-v1", "Alice", 1); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec, err := s.Find(ctx, "test-v1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.WatchTimeMins != 1 || rec.Name != "Alice" {
		t.Errorf("after create = %+v, want 1 min / Alice", rec)
	}

	// Second credit adds exactly the increment and refreshes the name.
	if err := s.UpsertIncrement(ctx, "test-v1", "alice_renamed", 1); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	rec, err = s.Find(ctx, "test-v1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.WatchTimeMins != 2 {
		t.Errorf("watch_time_mins = %d, want 2", rec.WatchTimeMins)
	}
	if rec.Name != "alice_renamed" {
		t.Errorf("name = %q, want alice_renamed (most recent observation wins)", rec.Name)
	}
}

func TestUpsertIncrementRejectsNegative(t *testing.T) {
	s := testStore(t)
	if err := s.UpsertIncrement(context.Background(), "test-neg", "x", -1); err == nil {
		t.Fatalf("expected error for negative increment")
	}
}

func TestConcurrentIncrementsSameViewer(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.UpsertIncrement(ctx, "test-race", "Racer", 1); err != nil {
				t.Errorf("upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := s.Find(ctx, "test-race")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.WatchTimeMins != workers {
		t.Errorf("watch_time_mins = %d, want %d (no lost updates)", rec.WatchTimeMins, workers)
	}
}

func TestTopOrderingAndTies(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Insertion order: a, b, c, d. b and c tie at 90.
	seed := []struct {
		id   string
		mins int64
	}{
		{"test-top-a", 120},
		{"test-top-b", 90},
		{"test-top-c", 90},
		{"test-top-d", 5},
	}
	for _, v := range seed {
		if err := s.UpsertIncrement(ctx, v.id, v.id, v.mins); err != nil {
			t.Fatalf("seed %s: %v", v.id, err)
		}
	}

	top, err := s.Top(ctx, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	// Unrelated test rows may exist; keep only ours.
	var got []string
	for _, rec := range top {
		got = append(got, rec.ViewerID)
	}
	want := []string{"test-top-a", "test-top-b", "test-top-c"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Top(3) = %v, want %v (ties by insertion order, d never present)", got, want)
	}
}

func TestFormatWatchTime(t *testing.T) {
	tests := []struct {
		mins int64
		want string
	}{
		{0, "0h 0m"},
		{59, "0h 59m"},
		{60, "1h 0m"},
		{125, "2h 5m"},
		{1441, "24h 1m"},
	}
	for _, tt := range tests {
		if got := FormatWatchTime(tt.mins); got != tt.want {
			t.Errorf("FormatWatchTime(%d) = %q, want %q", tt.mins, got, tt.want)
		}
	}
}
