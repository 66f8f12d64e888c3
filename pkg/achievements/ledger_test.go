package achievements

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/internal/testutil"
)

func TestUnlockIsIdempotent(t *testing.T) {
	ledger := New(testutil.SetupTestDB(t))
	ctx := context.Background()

	first, err := ledger.Unlock(ctx, 1, FirstLesson)
	if err != nil {
		t.Fatalf("Unlock returned error: %v", err)
	}
	if first != Unlocked {
		t.Fatalf("expected Unlocked, got %v", first)
	}
	second, err := ledger.Unlock(ctx, 1, FirstLesson)
	if err != nil {
		t.Fatalf("second Unlock returned error: %v", err)
	}
	if second != AlreadyUnlocked {
		t.Fatalf("expected AlreadyUnlocked, got %v", second)
	}

	ids, err := ledger.ForUser(ctx, 1)
	if err != nil {
		t.Fatalf("ForUser returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != FirstLesson {
		t.Fatalf("expected exactly one %q, got %v", FirstLesson, ids)
	}
}

func TestUnlockPerUser(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)

	unlock := func(at time.Time, userID uint, id string) {
		t.Helper()
		if _, err := New(gdb, WithClock(testutil.FixedClock(at))).Unlock(ctx, userID, id); err != nil {
			t.Fatalf("Unlock returned error: %v", err)
		}
	}
	unlock(base, 1, WeekStreak)
	unlock(base.Add(time.Minute), 1, "custom_badge")
	unlock(base, 2, WeekStreak)

	ledger := New(gdb)
	ids, err := ledger.ForUser(ctx, 1)
	if err != nil {
		t.Fatalf("ForUser returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != WeekStreak || ids[1] != "custom_badge" {
		t.Fatalf("expected earn order [week_streak custom_badge], got %v", ids)
	}
	n, err := ledger.Count(ctx, 2)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 achievement for user 2, got %d", n)
	}
}

func TestUnlockConcurrentWritesOnce(t *testing.T) {
	ledger := New(testutil.SetupTestDB(t))
	ctx := context.Background()

	const workers = 10
	results := make(chan Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Unlock(ctx, 5, QuizMaster)
			if err != nil {
				t.Errorf("Unlock returned error: %v", err)
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	unlocked := 0
	for res := range results {
		if res == Unlocked {
			unlocked++
		}
	}
	if unlocked != 1 {
		t.Fatalf("expected exactly one Unlocked result, got %d", unlocked)
	}
}

func TestUnlockRequiresID(t *testing.T) {
	ledger := New(testutil.SetupTestDB(t))
	if _, err := ledger.Unlock(context.Background(), 1, " "); !errors.Is(err, db.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCatalogLookup(t *testing.T) {
	def, ok := Lookup(MultiSubject)
	if !ok || def.Name != "Well Rounded" {
		t.Fatalf("expected Well Rounded definition, got %+v %v", def, ok)
	}
	if _, ok := Lookup("missing"); ok {
		t.Fatal("expected unknown id to be missing")
	}

	defs := Catalog()
	defs[0].Name = "changed"
	if again := Catalog(); again[0].Name != "First Steps" {
		t.Fatalf("Catalog must return a copy, got %q", again[0].Name)
	}
}

func TestStatusesMarkEarned(t *testing.T) {
	ledger := New(testutil.SetupTestDB(t))
	ctx := context.Background()

	for _, id := range []string{WeekStreak, "custom_badge"} {
		if _, err := ledger.Unlock(ctx, 5, id); err != nil {
			t.Fatalf("Unlock returned error: %v", err)
		}
	}
	statuses, err := ledger.Statuses(ctx, 5)
	if err != nil {
		t.Fatalf("Statuses returned error: %v", err)
	}
	if len(statuses) != len(Catalog()) {
		t.Fatalf("expected one status per catalog entry, got %d", len(statuses))
	}
	for _, st := range statuses {
		if want := st.ID == WeekStreak; st.Earned != want {
			t.Fatalf("%s: earned = %v, want %v", st.ID, st.Earned, want)
		}
	}
}

func TestLedgerReportsStorageFailure(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	ledger := New(gdb)
	ctx := context.Background()
	testutil.CloseDB(t, gdb)

	if _, err := ledger.Unlock(ctx, 1, FirstLesson); !errors.Is(err, db.ErrStorageUnavailable) {
		t.Fatalf("Unlock: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := ledger.ForUser(ctx, 1); !errors.Is(err, db.ErrStorageUnavailable) {
		t.Fatalf("ForUser: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := ledger.Count(ctx, 1); !errors.Is(err, db.ErrStorageUnavailable) {
		t.Fatalf("Count: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := ledger.Statuses(ctx, 1); !errors.Is(err, db.ErrStorageUnavailable) {
		t.Fatalf("Statuses: expected ErrStorageUnavailable, got %v", err)
	}
}
