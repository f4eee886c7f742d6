// Package events owns the canonical event log and the profile. Every mutation
// is written through the collection store and followed by a full reload, so the
// in-memory snapshot always equals what is durably stored.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/babbly/internal/kv"
	"github.com/rcliao/babbly/internal/model"
)

// ErrNotFound is returned when an update references an unknown event id.
var ErrNotFound = errors.New("event not found")

// Listener is notified after every committed change to the event collection.
// Listeners receive a snapshot and must not mutate events themselves.
type Listener interface {
	EventsChanged(ctx context.Context, events []model.Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, events []model.Event) error

func (f ListenerFunc) EventsChanged(ctx context.Context, events []model.Event) error {
	return f(ctx, events)
}

// Store is the event store. Create it with Open.
type Store struct {
	// writeMu serializes mutations together with their notifications.
	writeMu sync.Mutex

	mu        sync.RWMutex
	events    []model.Event
	profile   model.Profile
	listeners []Listener

	kv    kv.Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides the event id generator.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open loads the profile and events from the collection store. A missing
// profile is created with defaults.
func Open(ctx context.Context, store kv.Store, opts ...Option) (*Store, error) {
	s := &Store{
		kv:    store,
		log:   slog.New(slog.DiscardHandler),
		now:   time.Now,
		newID: model.NewID,
	}
	for _, o := range opts {
		o(s)
	}

	profile, ok, err := kv.LoadOne[model.Profile](ctx, store, kv.Profile, s.log)
	if err != nil {
		return nil, err
	}
	if !ok {
		profile = model.DefaultProfile()
		if err := kv.SaveOne(ctx, store, kv.Profile, profile); err != nil {
			return nil, err
		}
	}
	s.profile = profile

	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Subscribe registers l for change notifications.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Events returns a copy of the snapshot in storage order (newest first).
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	for i, e := range s.events {
		out[i] = e.Clone()
	}
	return out
}

// Get returns the event with the given id.
func (s *Store) Get(id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Profile returns the current profile.
func (s *Store) Profile() model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// NewEvent holds the input of AddEvent. Zero StartTime means now.
type NewEvent struct {
	Type      model.EventType
	Metadata  model.Metadata
	StartTime time.Time
	EndTime   *time.Time
}

// AddEvent creates an event, normalizing its metadata with the per-type
// defaults, and stores it at the head of the collection.
func (s *Store) AddEvent(ctx context.Context, in NewEvent) (model.Event, error) {
	if !in.Type.Valid() {
		return model.Event{}, fmt.Errorf("%w: unknown type %q", model.ErrInvalidEvent, in.Type)
	}
	md := in.Metadata
	if md == nil {
		md, _ = model.NewMetadata(in.Type)
	}

	now := s.now()
	start := in.StartTime
	if start.IsZero() {
		start = now
	}
	e := model.Event{
		ID:        s.newID(),
		Type:      in.Type,
		StartTime: start,
		EndTime:   in.EndTime,
		Metadata:  model.WithDefaults(md),
		CreatedBy: model.LocalUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e = e.Clone()
	if err := e.Validate(); err != nil {
		return model.Event{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := kv.Load[model.Event](ctx, s.kv, kv.Events, s.log)
	if err != nil {
		return model.Event{}, err
	}
	next := make([]model.Event, 0, len(stored)+1)
	next = append(next, e)
	next = append(next, stored...)

	if err := s.commit(ctx, next); err != nil {
		return model.Event{}, err
	}
	s.log.Debug("event added", "id", e.ID, "type", e.Type)
	return e, nil
}

// Patch holds a partial event update; nil fields are left alone. Metadata
// replaces the stored metadata and is normalized like a new event's.
type Patch struct {
	Type         *model.EventType
	StartTime    *time.Time
	EndTime      *time.Time
	ClearEndTime bool
	Metadata     model.Metadata
	CreatedBy    *string
}

func (p Patch) apply(e model.Event) model.Event {
	if p.Type != nil && *p.Type != e.Type {
		e.Type = *p.Type
		if p.Metadata == nil {
			if md, err := model.NewMetadata(e.Type); err == nil {
				e.Metadata = model.WithDefaults(md)
			}
		}
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.ClearEndTime {
		e.EndTime = nil
	}
	if p.EndTime != nil {
		t := *p.EndTime
		e.EndTime = &t
	}
	if p.Metadata != nil {
		e.Metadata = model.WithDefaults(p.Metadata)
	}
	if p.CreatedBy != nil {
		e.CreatedBy = *p.CreatedBy
	}
	return e
}

// UpdateEvent merges p into the event with the given id. It returns
// ErrNotFound, leaving the collection untouched, when no such event exists.
func (s *Store) UpdateEvent(ctx context.Context, id string, p Patch) (model.Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := kv.Load[model.Event](ctx, s.kv, kv.Events, s.log)
	if err != nil {
		return model.Event{}, err
	}

	idx := -1
	for i, e := range stored {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := p.apply(stored[idx])
	updated.UpdatedAt = s.now()
	if err := updated.Validate(); err != nil {
		return model.Event{}, err
	}
	stored[idx] = updated

	if err := s.commit(ctx, stored); err != nil {
		return model.Event{}, err
	}
	s.log.Debug("event updated", "id", id)
	return updated.Clone(), nil
}

// DeleteEvent removes the event with the given id. Deleting an unknown id is
// a no-op.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := kv.Load[model.Event](ctx, s.kv, kv.Events, s.log)
	if err != nil {
		return err
	}
	kept := make([]model.Event, 0, len(stored))
	for _, e := range stored {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(stored) {
		s.log.Debug("delete of unknown event ignored", "id", id)
		return s.reload(ctx)
	}

	if err := s.commit(ctx, kept); err != nil {
		return err
	}
	s.log.Debug("event deleted", "id", id)
	return nil
}

// UpdateProfile merges p into the profile and persists it.
func (s *Store) UpdateProfile(ctx context.Context, p model.ProfilePatch) (model.Profile, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	merged := s.Profile().Apply(p)
	if merged.ID == "" {
		merged.ID = model.DefaultProfileID
	}
	if err := kv.SaveOne(ctx, s.kv, kv.Profile, merged); err != nil {
		return model.Profile{}, err
	}

	profile, ok, err := kv.LoadOne[model.Profile](ctx, s.kv, kv.Profile, s.log)
	if err != nil {
		return model.Profile{}, fmt.Errorf("reload: %w", err)
	}
	if !ok {
		profile = merged
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return profile, nil
}

// commit writes the collection, reloads the snapshot from storage and
// notifies listeners. The snapshot is untouched when the write fails.
// Callers hold writeMu.
func (s *Store) commit(ctx context.Context, next []model.Event) error {
	if err := kv.Save(ctx, s.kv, kv.Events, next); err != nil {
		return err
	}
	if err := s.reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	s.notify(ctx)
	return nil
}

// Reload refreshes the snapshot and profile from storage, picking up writes
// made by other processes. Listeners are not notified.
func (s *Store) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	profile, ok, err := kv.LoadOne[model.Profile](ctx, s.kv, kv.Profile, s.log)
	if err != nil {
		return err
	}
	if ok {
		s.mu.Lock()
		s.profile = profile
		s.mu.Unlock()
	}
	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) error {
	events, err := kv.Load[model.Event](ctx, s.kv, kv.Events, s.log)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	return nil
}

// notify runs listeners in registration order. A failing listener is logged
// and does not undo the committed change.
func (s *Store) notify(ctx context.Context) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		if err := l.EventsChanged(ctx, s.Events()); err != nil {
			s.log.Warn("event listener failed", "err", err)
		}
	}
}
