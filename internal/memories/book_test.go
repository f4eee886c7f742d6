package memories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/kv"
	"github.com/rcliao/babbly/internal/model"
)

func newTestKV(t *testing.T) *kv.SQLiteStore {
	t.Helper()
	s, err := kv.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("create kv: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock() func() time.Time {
	return func() time.Time { return base.Add(24 * time.Hour) }
}

func TestBookScansOnEventChanges(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)

	es, err := events.Open(ctx, db, events.WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	book, err := Open(ctx, db, WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("open book: %v", err)
	}
	es.Subscribe(book)

	if _, err := es.AddEvent(ctx, events.NewEvent{Type: model.TypeFeed, StartTime: base}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := len(book.Memories()); n != 1 {
		t.Fatalf("expected 1 memory after first feed, got %d", n)
	}

	// More feeds do not duplicate the first-feed memory
	es.AddEvent(ctx, events.NewEvent{Type: model.TypeFeed, StartTime: base.Add(time.Hour)})
	es.AddEvent(ctx, events.NewEvent{Type: model.TypeFeed, StartTime: base.Add(2 * time.Hour)})
	if n := len(book.Memories()); n != 1 {
		t.Errorf("expected still 1 memory, got %d", n)
	}

	es.AddEvent(ctx, events.NewEvent{Type: model.TypeDiaper, StartTime: base.Add(3 * time.Hour)})
	ms := book.Memories()
	if len(ms) != 2 || ms[0].SourceKey != "first:diaper" {
		t.Errorf("expected new memory prepended, got %v", ms)
	}

	// Memories outlive their source events
	for _, e := range es.Events() {
		if err := es.DeleteEvent(ctx, e.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	if n := len(book.Memories()); n != 2 {
		t.Errorf("expected memories to survive event deletion, got %d", n)
	}

	// The scan never writes events
	if n := len(es.Events()); n != 0 {
		t.Errorf("expected no events, got %d", n)
	}

	reopened, err := Open(ctx, db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if n := len(reopened.Memories()); n != 2 {
		t.Errorf("expected 2 persisted memories, got %d", n)
	}
}

func TestBookDeleteDismissesGenerated(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	book, err := Open(ctx, db, WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	evs := []model.Event{ev("f1", model.TypeFeed, base, nil)}
	if err := book.EventsChanged(ctx, evs); err != nil {
		t.Fatalf("scan: %v", err)
	}
	id := MemoryID("first:feed")
	if err := book.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := book.EventsChanged(ctx, evs); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if n := len(book.Memories()); n != 0 {
		t.Errorf("deleted memory came back: %d memories", n)
	}

	// Deleting an unknown id is a no-op
	if err := book.Delete(ctx, "missing"); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}

func TestBookUserEdits(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	book, err := Open(ctx, db, WithClock(fixedClock()), WithIDs(func() string { return "m1" }))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	m, err := book.Add(ctx, NewMemory{Title: "First smile", Content: "At grandma's"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if m.ID != "m1" || m.SourceKey != "" || m.MoodColor != MoodNote {
		t.Errorf("unexpected memory: %+v", m)
	}

	title := "First real smile"
	updated, err := book.Update(ctx, "m1", model.MemoryPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.Content != "At grandma's" {
		t.Errorf("unexpected update: %+v", updated)
	}

	fav, err := book.ToggleFavorite(ctx, "m1")
	if err != nil || !fav.IsFavorite {
		t.Fatalf("toggle: %+v %v", fav, err)
	}
	fav, _ = book.ToggleFavorite(ctx, "m1")
	if fav.IsFavorite {
		t.Error("second toggle should clear favorite")
	}

	if _, err := book.Update(ctx, "nope", model.MemoryPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := book.ToggleFavorite(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := book.Delete(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := db.Has(ctx, kv.MemoryTombstones); ok {
		t.Error("user memories should not leave tombstones")
	}
}

func TestBookIgnoresEmptyEventSnapshot(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	book, _ := Open(ctx, db)
	if err := book.EventsChanged(ctx, nil); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if ok, _ := db.Has(ctx, kv.Memories); ok {
		t.Error("empty scan should not write")
	}
}
