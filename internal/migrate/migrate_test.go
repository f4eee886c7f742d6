package migrate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

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

const legacyLogs = `[
  {"id":"l1","type":"feed","timestamp":"2024-05-01T08:00:00Z","details":{"subType":"bottle","amount":90}},
  {"id":"l2","type":"sleep","timestamp":"2024-05-01T09:00:00Z","details":{"location":"crib","quality":"4","duration":5400000}},
  {"id":"l3","type":"diaper","timestamp":1714557600000,"details":{"condition":"dirty"}},
  {"type":"note","timestamp":"2024-05-01T11:00:00Z","details":{"text":"first smile"}}
]`

const legacyBaby = `{"name":"Mia","dob":"2024-04-20","onboadingComplete":true}`

func seed(t *testing.T, db kv.Store, logs, baby string) {
	t.Helper()
	var l, b []byte
	if logs != "" {
		l = []byte(logs)
	}
	if baby != "" {
		b = []byte(baby)
	}
	if err := ImportLegacy(context.Background(), db, l, b); err != nil {
		t.Fatalf("import legacy: %v", err)
	}
}

func TestRunWithoutLegacyIsNoop(t *testing.T) {
	db := newTestKV(t)

	res, err := New(db).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Migrated {
		t.Errorf("expected no migration, got %+v", res)
	}
	if ok, _ := db.Has(context.Background(), kv.Profile); ok {
		t.Error("no-op run should not write a profile")
	}
}

func TestRunConvertsLegacyData(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	seed(t, db, legacyLogs, legacyBaby)

	m := New(db, WithIDs(func() string { return "generated" }))
	res, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Migrated || !res.Profile || res.Events != 4 {
		t.Errorf("unexpected result: %+v", res)
	}

	p, ok, err := kv.LoadOne[model.Profile](ctx, db, kv.Profile, nil)
	if err != nil || !ok {
		t.Fatalf("load profile: ok=%v err=%v", ok, err)
	}
	if p.ID != model.DefaultProfileID || p.Name != "Mia" || p.DOB != "2024-04-20" || !p.OnboardingComplete {
		t.Errorf("unexpected profile: %+v", p)
	}

	events, err := kv.Load[model.Event](ctx, db, kv.Events, nil)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	byID := map[string]model.Event{}
	for _, e := range events {
		byID[e.ID] = e
		if e.CreatedBy != model.LocalUser {
			t.Errorf("%s: createdBy = %q", e.ID, e.CreatedBy)
		}
		if !e.CreatedAt.Equal(e.StartTime) || !e.UpdatedAt.Equal(e.StartTime) {
			t.Errorf("%s: audit times should equal the legacy timestamp", e.ID)
		}
	}
	if events[0].ID != "generated" {
		t.Errorf("expected newest-first order, first is %s", events[0].ID)
	}

	sleep := byID["l2"]
	if sleep.EndTime == nil {
		t.Fatal("sleep with duration should get an end time")
	}
	if got := sleep.EndTime.Sub(sleep.StartTime); got != 90*time.Minute {
		t.Errorf("sleep length = %v, want 90m", got)
	}
	if sm := sleep.Metadata.(model.SleepMeta); sm.Quality != 4 {
		t.Errorf("quality = %d, want 4", sm.Quality)
	}

	feed := byID["l1"]
	if feed.EndTime != nil {
		t.Error("feed should not get an end time")
	}
	if fm := feed.Metadata.(model.FeedMeta); fm.SubType != "bottle" || fm.Amount != "90" {
		t.Errorf("unexpected feed metadata: %+v", fm)
	}

	diaper := byID["l3"]
	if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !diaper.StartTime.Equal(want) {
		t.Errorf("epoch timestamp = %v, want %v", diaper.StartTime, want)
	}

	for _, name := range []string{kv.LegacyLogs, kv.LegacyBaby} {
		if ok, _ := db.Has(ctx, name); ok {
			t.Errorf("legacy collection %s should be removed", name)
		}
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	seed(t, db, legacyLogs, legacyBaby)

	if _, err := New(db).Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _, _ := db.Raw(ctx, kv.Events)

	res, err := New(db).Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Migrated {
		t.Errorf("second run should be a no-op, got %+v", res)
	}
	second, _, _ := db.Raw(ctx, kv.Events)
	if string(first) != string(second) {
		t.Error("second run changed the events collection")
	}
}

func TestRunMergesWithExistingEvents(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)

	existing := model.Event{
		ID:        "l1",
		Type:      model.TypeFeed,
		StartTime: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		Metadata:  model.FeedMeta{SubType: "breast"},
		CreatedBy: model.LocalUser,
	}
	if err := kv.Save(ctx, db, kv.Events, []model.Event{existing}); err != nil {
		t.Fatalf("save: %v", err)
	}
	keep := model.Profile{ID: model.DefaultProfileID, Name: "Existing"}
	if err := kv.SaveOne(ctx, db, kv.Profile, keep); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	seed(t, db, legacyLogs, "")

	res, err := New(db).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Events != 3 || res.Skipped != 1 || res.Profile {
		t.Errorf("unexpected result: %+v", res)
	}

	events, _ := kv.Load[model.Event](ctx, db, kv.Events, nil)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].ID != "l1" || events[0].Metadata.(model.FeedMeta).SubType != "breast" {
		t.Errorf("existing event should win on id clash, got %+v", events[0])
	}

	p, _, _ := kv.LoadOne[model.Profile](ctx, db, kv.Profile, nil)
	if p.Name != "Existing" {
		t.Errorf("existing profile overwritten: %+v", p)
	}
}

func TestRunOnlyLogsCreatesDefaultProfile(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	seed(t, db, legacyLogs, "")

	if _, err := New(db).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	p, ok, _ := kv.LoadOne[model.Profile](ctx, db, kv.Profile, nil)
	if !ok || p.ID != model.DefaultProfileID {
		t.Errorf("expected default profile, got ok=%v %+v", ok, p)
	}
}

func TestRunRejectsUnreadableLegacyDocument(t *testing.T) {
	tests := []struct {
		name string
		logs string
		baby string
	}{
		{"logs not an array", `{"id":"x"}`, legacyBaby},
		{"profile not an object", legacyLogs, `["Mia"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := newTestKV(t)
			seed(t, db, tt.logs, tt.baby)

			_, err := New(db).Run(ctx)
			if !errors.Is(err, ErrLegacyData) {
				t.Fatalf("expected ErrLegacyData, got %v", err)
			}
			for _, name := range []string{kv.LegacyLogs, kv.LegacyBaby} {
				if ok, _ := db.Has(ctx, name); !ok {
					t.Errorf("legacy collection %s should be kept", name)
				}
			}
			for _, name := range []string{kv.Profile, kv.Events} {
				if ok, _ := db.Has(ctx, name); ok {
					t.Errorf("%s should not be written on failure", name)
				}
			}
		})
	}
}

func TestRunKeepsUnconvertibleLogs(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	logs := `[
	  {"id":"ok","type":"feed","timestamp":"2024-05-01T08:00:00Z"},
	  {"id":"bath","type":"bath","timestamp":"2024-05-01T08:30:00Z"},
	  {"id":"when","type":"feed","timestamp":"yesterday"},
	  {"id":"never","type":"feed"},
	  {"id":"q9","type":"sleep","timestamp":"2024-05-01T09:00:00Z","details":{"quality":9,"duration":3600000}},
	  {"id":"soiled","type":"diaper","timestamp":"2024-05-01T10:00:00Z","details":{"condition":"soiled"}},
	  {"id":"ouch","type":"pump","timestamp":"2024-05-01T11:00:00Z","details":{"discomfortLevel":7}},
	  {"id":"back","type":"sleep","timestamp":"2024-05-01T12:00:00Z","details":{"duration":-5}},
	  "not a log"
	]`
	seed(t, db, logs, legacyBaby)

	res, err := New(db).Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Events != 1 || res.Rejected != 8 || !res.Profile {
		t.Errorf("unexpected result: %+v", res)
	}

	events, _ := kv.Load[model.Event](ctx, db, kv.Events, nil)
	if len(events) != 1 || events[0].ID != "ok" {
		t.Fatalf("only the valid log should convert, got %+v", events)
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			t.Errorf("stored event %s is invalid: %v", e.ID, err)
		}
	}

	left, err := db.Get(ctx, kv.LegacyLogs)
	if err != nil {
		t.Fatalf("get legacy: %v", err)
	}
	if len(left) != 8 {
		t.Errorf("expected 8 legacy logs kept, got %d", len(left))
	}
	if ok, _ := db.Has(ctx, kv.LegacyBaby); ok {
		t.Error("converted legacy profile should be removed")
	}

	// A later run keeps failing on the same records without duplicating events.
	res, err = New(db).Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Events != 0 || res.Rejected != 8 {
		t.Errorf("unexpected second result: %+v", res)
	}
	if events, _ := kv.Load[model.Event](ctx, db, kv.Events, nil); len(events) != 1 {
		t.Errorf("second run changed events: %d", len(events))
	}
}

func TestRunLogsDroppedDetailFields(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	logs := `[{"id":"f","type":"feed","timestamp":"2024-05-01T08:00:00Z","details":{"subType":"bottle","formulaBrand":"Acme","notes":""}}]`
	seed(t, db, logs, "")

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if _, err := New(db, WithLogger(log)).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "legacy detail fields dropped") || !strings.Contains(out, "formulaBrand") {
		t.Errorf("expected dropped field to be logged:\n%s", out)
	}
	if strings.Contains(out, "fields=[notes") || strings.Contains(out, "subType]") {
		t.Errorf("known fields reported as dropped:\n%s", out)
	}
}

// failingApply refuses every batch.
type failingApply struct{ kv.Store }

func (failingApply) Apply(context.Context, kv.Batch) error { return errors.New("disk full") }

func TestRunCommitFailureKeepsLegacy(t *testing.T) {
	ctx := context.Background()
	db := newTestKV(t)
	seed(t, db, legacyLogs, legacyBaby)

	if _, err := New(failingApply{db}).Run(ctx); err == nil {
		t.Fatal("expected commit error")
	}
	if ok, _ := db.Has(ctx, kv.LegacyLogs); !ok {
		t.Error("legacy logs lost after failed commit")
	}
	if ok, _ := db.Has(ctx, kv.Events); ok {
		t.Error("events written despite failed commit")
	}
}

func TestImportLegacyRejectsInvalidJSON(t *testing.T) {
	db := newTestKV(t)
	err := ImportLegacy(context.Background(), db, []byte(`[{`), nil)
	if !errors.Is(err, ErrLegacyData) {
		t.Fatalf("expected ErrLegacyData, got %v", err)
	}
}
