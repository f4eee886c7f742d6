// Package migrate upgrades the legacy per-entity storage (babbly_baby and
// babbly_logs) to the unified profile and event collections.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/babbly/internal/kv"
	"github.com/rcliao/babbly/internal/model"
)

// ErrLegacyData is wrapped when a legacy document as a whole cannot be read.
// The legacy collections are left untouched in that case.
var ErrLegacyData = errors.New("unreadable legacy data")

// Result reports what a migration run did.
type Result struct {
	Migrated bool `json:"migrated"`
	Profile  bool `json:"profile"`
	Events   int  `json:"events"`
	Skipped  int  `json:"skipped"`
	// Rejected counts legacy logs that could not be converted. They stay in
	// the legacy collection for a later run.
	Rejected int `json:"rejected"`
}

// Migrator converts legacy collections. It must run before any other
// component reads the store.
type Migrator struct {
	kv    kv.Store
	log   *slog.Logger
	newID func() string
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Migrator) { m.log = log }
}

// WithIDs overrides the id generator used for legacy logs without an id.
func WithIDs(newID func() string) Option {
	return func(m *Migrator) { m.newID = newID }
}

// New returns a Migrator over store.
func New(store kv.Store, opts ...Option) *Migrator {
	m := &Migrator{
		kv:    store,
		log:   slog.New(slog.DiscardHandler),
		newID: model.NewID,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

type legacyBaby struct {
	Name               string `json:"name"`
	DOB                string `json:"dob"`
	OnboardingComplete bool   `json:"onboardingComplete"`
	Misspelled         bool   `json:"onboadingComplete"`
}

type legacyLog struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Details   json.RawMessage `json:"details"`
}

// Run converts any legacy data it finds. Without legacy collections it does
// nothing, so running it repeatedly is safe. The profile, the merged events
// and the removal of the legacy collections commit together or not at all.
// Logs that cannot be converted into a valid event stay in babbly_logs and
// are counted in Result.Rejected.
func (m *Migrator) Run(ctx context.Context) (Result, error) {
	logsDoc, hasLogs, err := m.kv.Raw(ctx, kv.LegacyLogs)
	if err != nil {
		return Result{}, fmt.Errorf("read legacy logs: %w", err)
	}
	babyDoc, hasBaby, err := m.kv.Raw(ctx, kv.LegacyBaby)
	if err != nil {
		return Result{}, fmt.Errorf("read legacy profile: %w", err)
	}
	if !hasLogs && !hasBaby {
		return Result{}, nil
	}

	m.log.Info("migrating legacy data to unified event model", "logs", hasLogs, "profile", hasBaby)

	res := Result{Migrated: true}
	var batch kv.Batch

	if err := m.migrateProfile(ctx, &batch, babyDoc, hasBaby, &res); err != nil {
		return Result{}, err
	}
	if hasLogs {
		if err := m.migrateLogs(ctx, &batch, logsDoc, &res); err != nil {
			return Result{}, err
		}
	}

	batch.Delete(kv.LegacyBaby)

	if err := m.kv.Apply(ctx, batch); err != nil {
		return Result{}, fmt.Errorf("commit migration: %w", err)
	}

	m.log.Info("migration complete", "events", res.Events, "skipped", res.Skipped, "rejected", res.Rejected)
	return res, nil
}

func (m *Migrator) migrateProfile(ctx context.Context, batch *kv.Batch, doc []byte, ok bool, res *Result) error {
	if !ok {
		// Keep an existing profile; only a fresh store gets the default one.
		if has, err := m.kv.Has(ctx, kv.Profile); err != nil || has {
			return err
		}
		return kv.PutOne(batch, kv.Profile, model.DefaultProfile())
	}

	var old legacyBaby
	if err := json.Unmarshal(doc, &old); err != nil {
		return fmt.Errorf("%w: profile: %v", ErrLegacyData, err)
	}
	p := model.DefaultProfile()
	p.Name = old.Name
	p.DOB = old.DOB
	p.OnboardingComplete = old.OnboardingComplete || old.Misspelled

	res.Profile = true
	return kv.PutOne(batch, kv.Profile, p)
}

func (m *Migrator) migrateLogs(ctx context.Context, batch *kv.Batch, doc []byte, res *Result) error {
	var records []json.RawMessage
	if err := json.Unmarshal(doc, &records); err != nil {
		return fmt.Errorf("%w: logs: %v", ErrLegacyData, err)
	}

	existing, err := kv.Load[model.Event](ctx, m.kv, kv.Events, m.log)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[e.ID] = true
	}

	merged := existing
	var rejected []json.RawMessage
	for i, raw := range records {
		e, err := m.convert(raw)
		if err != nil {
			m.log.Warn("legacy log not converted, keeping it", "index", i, "err", err)
			rejected = append(rejected, raw)
			continue
		}
		if known[e.ID] {
			res.Skipped++
			continue
		}
		known[e.ID] = true
		merged = append(merged, e)
		res.Events++
	}
	model.SortNewestFirst(merged)
	res.Rejected = len(rejected)

	if err := kv.PutItems(batch, kv.Events, merged); err != nil {
		return err
	}
	if len(rejected) > 0 {
		return kv.PutItems(batch, kv.LegacyLogs, rejected)
	}
	batch.Delete(kv.LegacyLogs)
	return nil
}

func (m *Migrator) convert(raw json.RawMessage) (model.Event, error) {
	var l legacyLog
	if err := json.Unmarshal(raw, &l); err != nil {
		return model.Event{}, err
	}
	typ, err := model.ParseEventType(l.Type)
	if err != nil {
		return model.Event{}, err
	}
	ts, err := parseInstant(l.Timestamp)
	if err != nil {
		return model.Event{}, err
	}
	md, err := model.DecodeMetadata(typ, l.Details)
	if err != nil {
		return model.Event{}, err
	}

	id := l.ID
	if id == "" {
		id = m.newID()
	}
	e := model.Event{
		ID:        id,
		Type:      typ,
		StartTime: ts,
		Metadata:  md,
		CreatedBy: model.LocalUser,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if sm, ok := md.(model.SleepMeta); ok && sm.Duration > 0 {
		end := ts.Add(time.Duration(sm.Duration) * time.Millisecond)
		e.EndTime = &end
	}
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}
	if dropped := droppedKeys(l.Details, md); len(dropped) > 0 {
		m.log.Debug("legacy detail fields dropped", "id", id, "type", typ, "fields", dropped)
	}
	return e, nil
}

// droppedKeys lists the keys of details that the metadata variant has no
// field for.
func droppedKeys(details json.RawMessage, md model.Metadata) []string {
	var in map[string]json.RawMessage
	if err := json.Unmarshal(details, &in); err != nil || len(in) == 0 {
		return nil
	}
	fields := jsonFields(reflect.TypeOf(md))

	var dropped []string
	for k := range in {
		if !fields[k] {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)
	return dropped
}

func jsonFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}

// parseInstant accepts an RFC 3339 string or epoch milliseconds.
func parseInstant(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, errors.New("missing timestamp")
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			return t, nil
		}
		s = str
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// ImportLegacy stores v1 export documents in the legacy collections so the
// next Run converts them. Either document may be nil.
func ImportLegacy(ctx context.Context, store kv.Store, logs, baby []byte) error {
	var batch kv.Batch
	if logs != nil {
		if !json.Valid(logs) {
			return fmt.Errorf("%w: logs file is not JSON", ErrLegacyData)
		}
		batch.Put(kv.LegacyLogs, logs)
	}
	if baby != nil {
		if !json.Valid(baby) {
			return fmt.Errorf("%w: profile file is not JSON", ErrLegacyData)
		}
		batch.Put(kv.LegacyBaby, baby)
	}
	if batch.Len() == 0 {
		return nil
	}
	return store.Apply(ctx, batch)
}
