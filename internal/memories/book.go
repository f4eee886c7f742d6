package memories

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

// ErrNotFound is returned when an edit references an unknown memory id.
var ErrNotFound = errors.New("memory not found")

// Book owns the memory collection. It reads events only through the
// snapshots it is handed and writes only memories and their tombstones.
type Book struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	memories  []model.Memory
	dismissed []string

	kv     kv.Store
	engine *Engine
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Book.
type Option func(*Book)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// WithIDs overrides the id generator for user-created memories.
func WithIDs(newID func() string) Option {
	return func(b *Book) { b.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Book) { b.log = log }
}

// WithEngine replaces the default engine.
func WithEngine(e *Engine) Option {
	return func(b *Book) { b.engine = e }
}

// Open loads the memory collection.
func Open(ctx context.Context, store kv.Store, opts ...Option) (*Book, error) {
	b := &Book{
		kv:     store,
		engine: NewEngine(),
		log:    slog.New(slog.DiscardHandler),
		now:    time.Now,
		newID:  model.NewID,
	}
	for _, o := range opts {
		o(b)
	}
	if err := b.reload(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Memories returns a copy of the collection, newest first.
func (b *Book) Memories() []model.Memory {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.Memory(nil), b.memories...)
}

// Get returns the memory with the given id.
func (b *Book) Get(id string) (model.Memory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, m := range b.memories {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Memory{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// EventsChanged scans events for new milestones and prepends their memories.
// It is registered as an events.Listener.
func (b *Book) EventsChanged(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	current := b.Memories()
	b.mu.RLock()
	dismissed := append([]string(nil), b.dismissed...)
	b.mu.RUnlock()

	fresh := b.engine.Generate(events, current, dismissed, b.now())
	if len(fresh) == 0 {
		return nil
	}

	next := append(fresh, current...)
	if err := kv.Save(ctx, b.kv, kv.Memories, next); err != nil {
		return err
	}
	for _, m := range fresh {
		b.log.Info("memory created", "id", m.ID, "key", m.SourceKey, "title", m.Title)
	}
	return b.reload(ctx)
}

// NewMemory holds a user-written memory. Zero Timestamp means now.
type NewMemory struct {
	Title     string
	Content   string
	MoodColor string
	MediaRef  string
	Timestamp time.Time
}

// Add stores a user-written memory at the head of the collection.
func (b *Book) Add(ctx context.Context, in NewMemory) (model.Memory, error) {
	now := b.now()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	mood := in.MoodColor
	if mood == "" {
		mood = MoodNote
	}
	m := model.Memory{
		ID:        b.newID(),
		Timestamp: ts,
		Title:     in.Title,
		Content:   in.Content,
		MoodColor: mood,
		MediaRef:  in.MediaRef,
		CreatedAt: now,
		UpdatedAt: now,
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	next := append([]model.Memory{m}, b.Memories()...)
	if err := kv.Save(ctx, b.kv, kv.Memories, next); err != nil {
		return model.Memory{}, err
	}
	return m, b.reload(ctx)
}

// Update applies a user edit.
func (b *Book) Update(ctx context.Context, id string, p model.MemoryPatch) (model.Memory, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	current := b.Memories()
	idx := indexOf(current, id)
	if idx < 0 {
		return model.Memory{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated := current[idx].Apply(p)
	updated.UpdatedAt = b.now()
	current[idx] = updated

	if err := kv.Save(ctx, b.kv, kv.Memories, current); err != nil {
		return model.Memory{}, err
	}
	return updated, b.reload(ctx)
}

// ToggleFavorite flips the favorite flag.
func (b *Book) ToggleFavorite(ctx context.Context, id string) (model.Memory, error) {
	m, err := b.Get(id)
	if err != nil {
		return model.Memory{}, err
	}
	fav := !m.IsFavorite
	return b.Update(ctx, id, model.MemoryPatch{IsFavorite: &fav})
}

// Delete removes a memory; unknown ids are ignored. Deleting a generated memory
// records its key so the engine does not bring it back.
func (b *Book) Delete(ctx context.Context, id string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	current := b.Memories()
	idx := indexOf(current, id)
	if idx < 0 {
		return nil
	}
	removed := current[idx]
	next := append(current[:idx:idx], current[idx+1:]...)

	var batch kv.Batch
	if err := kv.PutItems(&batch, kv.Memories, next); err != nil {
		return err
	}
	if removed.SourceKey != "" {
		b.mu.RLock()
		dismissed := append(append([]string(nil), b.dismissed...), removed.SourceKey)
		b.mu.RUnlock()
		if err := kv.PutItems(&batch, kv.MemoryTombstones, dismissed); err != nil {
			return err
		}
	}
	if err := b.kv.Apply(ctx, batch); err != nil {
		return fmt.Errorf("write memories: %w", err)
	}
	return b.reload(ctx)
}

func (b *Book) reload(ctx context.Context) error {
	memories, err := kv.Load[model.Memory](ctx, b.kv, kv.Memories, b.log)
	if err != nil {
		return err
	}
	dismissed, err := kv.Load[string](ctx, b.kv, kv.MemoryTombstones, b.log)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.memories = memories
	b.dismissed = dismissed
	b.mu.Unlock()
	return nil
}

func indexOf(ms []model.Memory, id string) int {
	for i, m := range ms {
		if m.ID == id {
			return i
		}
	}
	return -1
}
