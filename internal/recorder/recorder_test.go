package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewSQLiteJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteJournal_MarkAndCheck(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	sent, err := j.WasSent(ctx, "yt:abc")
	if err != nil || sent {
		t.Fatalf("fresh key: sent=%v err=%v", sent, err)
	}
	if err := j.MarkSent(ctx, "yt:abc", KindVideo); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := j.MarkSent(ctx, "yt:abc", KindVideo); err != nil {
		t.Fatalf("second MarkSent should be ignored: %v", err)
	}
	sent, err = j.WasSent(ctx, "yt:abc")
	if err != nil || !sent {
		t.Fatalf("marked key: sent=%v err=%v", sent, err)
	}
	if sent, _ := j.WasSent(ctx, "https://example.com/other"); sent {
		t.Error("unrelated key reported as sent")
	}
}

func TestSQLiteJournal_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := NewSQLiteJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.MarkSent(ctx, "guid-1", KindNews); err != nil {
		t.Fatal(err)
	}
	j.Close()

	j, err = NewSQLiteJournal(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if sent, _ := j.WasSent(ctx, "guid-1"); !sent {
		t.Error("key lost after reopen")
	}
}

func TestSQLiteJournal_Prune(t *testing.T) {
	ctx := context.Background()
	j := openTemp(t)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return base }
	_ = j.MarkSent(ctx, "old", KindNews)
	j.now = func() time.Time { return base.Add(48 * time.Hour) }
	_ = j.MarkSent(ctx, "new", KindNews)

	n, err := j.Prune(ctx, base.Add(24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Prune: n=%d err=%v", n, err)
	}
	if sent, _ := j.WasSent(ctx, "old"); sent {
		t.Error("old key should be pruned")
	}
	if sent, _ := j.WasSent(ctx, "new"); !sent {
		t.Error("new key should survive")
	}
}

func TestNoopJournal(t *testing.T) {
	var j Journal = NewNoopJournal()
	ctx := context.Background()
	_ = j.MarkSent(ctx, "k", KindNews)
	if sent, err := j.WasSent(ctx, "k"); sent || err != nil {
		t.Errorf("noop journal: sent=%v err=%v", sent, err)
	}
}
