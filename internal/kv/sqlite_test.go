package kv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestGetAbsentIsEmpty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.Get(context.Background(), Events)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty, got %d records", len(records))
	}

	ok, err := s.Has(context.Background(), Events)
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if ok {
		t.Error("expected collection to be absent")
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := []item{{ID: "a", Name: "alpha"}, {ID: "b", Name: "beta"}}
	if err := Save(ctx, s, Events, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := Load[item](ctx, s, Events, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].Name != "beta" {
		t.Errorf("unexpected items: %+v", out)
	}

	// Put replaces the full collection
	if err := Save(ctx, s, Events, []item{{ID: "c"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, _ = Load[item](ctx, s, Events, nil)
	if len(out) != 1 || out[0].ID != "c" {
		t.Errorf("expected only c, got %+v", out)
	}
}

func TestMalformedDocumentReadsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Bypass Put validation to simulate corruption on disk
	_, err := s.db.Exec(`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)`,
		Events, `[{"id":"a"`, "now")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	records, err := s.Get(ctx, Events)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty collection, got %d", len(records))
	}
}

func TestLoadSkipsBadRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, Events, json.RawMessage(`[{"id":"a"},"oops",{"id":"b"}]`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, err := Load[item](ctx, s, Events, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 decodable records, got %d", len(out))
	}
}

func TestSingletonDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := SaveOne(ctx, s, Profile, item{ID: "p", Name: "June"}); err != nil {
		t.Fatalf("save one: %v", err)
	}
	got, ok, err := LoadOne[item](ctx, s, Profile, nil)
	if err != nil || !ok {
		t.Fatalf("load one: ok=%v err=%v", ok, err)
	}
	if got.Name != "June" {
		t.Errorf("expected June, got %q", got.Name)
	}
}

func TestPutRejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), Events, json.RawMessage(`{nope`))
	if err == nil {
		t.Fatal("expected error for invalid document")
	}
}

func TestApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := Save(ctx, s, LegacyLogs, []item{{ID: "old"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var b Batch
	if err := PutItems(&b, Events, []item{{ID: "new"}}); err != nil {
		t.Fatalf("queue: %v", err)
	}
	b.Delete(LegacyLogs)
	b.Put(Profile, json.RawMessage(`{broken`))

	if err := s.Apply(ctx, b); err == nil {
		t.Fatal("expected apply to fail")
	}

	if ok, _ := s.Has(ctx, Events); ok {
		t.Error("events written despite failed batch")
	}
	if ok, _ := s.Has(ctx, LegacyLogs); !ok {
		t.Error("legacy logs deleted despite failed batch")
	}

	var good Batch
	PutItems(&good, Events, []item{{ID: "new"}})
	good.Delete(LegacyLogs)
	if err := s.Apply(ctx, good); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ok, _ := s.Has(ctx, LegacyLogs); ok {
		t.Error("legacy logs should be gone")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	Save(ctx, s, Events, []item{{ID: "a"}, {ID: "b"}})
	SaveOne(ctx, s, Profile, item{ID: "p"})

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(st.Collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(st.Collections))
	}
	// ordered by name: events, profile
	if st.Collections[0].Name != Events || st.Collections[0].Records != 2 {
		t.Errorf("unexpected events stats: %+v", st.Collections[0])
	}
	if st.Collections[1].Records != 1 {
		t.Errorf("expected singleton profile, got %+v", st.Collections[1])
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath, nil)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestRawReturnsDocumentVerbatim(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := s.Raw(ctx, LegacyLogs); err != nil || ok {
		t.Fatalf("absent collection: ok=%v err=%v", ok, err)
	}

	// Malformed documents are still visible through Raw
	_, err := s.db.Exec(`INSERT INTO collections (name, data, updated_at) VALUES (?, ?, ?)`,
		LegacyLogs, `"not a list"`, "now")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	doc, ok, err := s.Raw(ctx, LegacyLogs)
	if err != nil || !ok {
		t.Fatalf("raw: ok=%v err=%v", ok, err)
	}
	if string(doc) != `"not a list"` {
		t.Errorf("raw = %s", doc)
	}
	if records, _ := s.Get(ctx, LegacyLogs); len(records) != 0 {
		t.Errorf("Get should read the malformed document as empty, got %d", len(records))
	}
}
