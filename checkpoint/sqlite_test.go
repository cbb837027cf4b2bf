package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSqliteSaver(t *testing.T) *SqliteSaver {
	t.Helper()
	saver, err := NewSqliteSaver(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewSqliteSaver failed: %v", err)
	}
	t.Cleanup(func() {
		if err := saver.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return saver
}

func TestSqliteSaverRoundTrip(t *testing.T) {
	saver := newTestSqliteSaver(t)
	ctx := context.Background()

	state := map[string]interface{}{
		"query":    "hello",
		"messages": []interface{}{map[string]interface{}{"id": "1", "role": "user", "content": "hello"}},
	}
	seq, err := saver.Put(ctx, "alice_2026-08-31", state, "assistant")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("expected seq 1, got %d", seq)
	}

	cp, err := saver.GetLatest(ctx, "alice_2026-08-31")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp == nil {
		t.Fatal("expected checkpoint")
	}
	if cp.NextNode != "assistant" || cp.Seq != 1 {
		t.Errorf("unexpected checkpoint: %+v", cp)
	}
	if cp.State["query"] != "hello" {
		t.Errorf("state did not survive round trip: %v", cp.State)
	}
}

func TestSqliteSaverGetLatestAbsent(t *testing.T) {
	saver := newTestSqliteSaver(t)

	cp, err := saver.GetLatest(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil for unknown thread, got %+v", cp)
	}
}

func TestSqliteSaverSequencePerThread(t *testing.T) {
	saver := newTestSqliteSaver(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		seq, err := saver.Put(ctx, "t1", nil, "n")
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if seq != int64(i) {
			t.Errorf("expected seq %d, got %d", i, seq)
		}
	}

	// Sequences are per thread, not global.
	seq, err := saver.Put(ctx, "t2", nil, "n")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("expected independent sequence for t2, got %d", seq)
	}
}

func TestSqliteSaverListThreads(t *testing.T) {
	saver := newTestSqliteSaver(t)
	ctx := context.Background()

	for _, tid := range []string{"alice_2026-08-30", "bob_2026-08-30", "carol_2026-08-31"} {
		if _, err := saver.Put(ctx, tid, nil, "n"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	// A second checkpoint must not produce a duplicate listing.
	if _, err := saver.Put(ctx, "alice_2026-08-30", nil, "n2"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	threads, err := saver.ListThreads(ctx, "_2026-08-30")
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 2 {
		t.Errorf("expected 2 threads, got %v", threads)
	}
}

func TestSqliteSaverListThreadsMatchesSuffixLiterally(t *testing.T) {
	saver := newTestSqliteSaver(t)
	ctx := context.Background()

	// The underscore in a date suffix must not act as a single-character
	// wildcard.
	for _, tid := range []string{"alice_2026-08-30", "evilX2026-08-30"} {
		if _, err := saver.Put(ctx, tid, nil, "n"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	threads, err := saver.ListThreads(ctx, "_2026-08-30")
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 1 || threads[0] != "alice_2026-08-30" {
		t.Errorf("expected only alice_2026-08-30, got %v", threads)
	}
}
