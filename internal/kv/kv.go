// Package kv provides the durable collection store every other component
// persists through. A collection is one JSON document: an array of records,
// or a single object for singletons such as the profile.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Collection names.
const (
	Profile          = "profile"
	Events           = "events"
	Memories         = "memories"
	MemoryTombstones = "memory_tombstones"

	LegacyLogs = "babbly_logs"
	LegacyBaby = "babbly_baby"
)

// Store defines the collection storage interface.
type Store interface {
	// Get returns the records of a collection. Absent or malformed
	// documents read as an empty collection; only I/O failures are errors.
	Get(ctx context.Context, name string) ([]json.RawMessage, error)

	// Raw returns the stored document as is. ok is false when it is absent.
	Raw(ctx context.Context, name string) (doc []byte, ok bool, err error)

	// Has reports whether a collection document exists.
	Has(ctx context.Context, name string) (bool, error)

	// Put replaces the whole collection document.
	Put(ctx context.Context, name string, doc json.RawMessage) error

	// Delete removes a collection. Deleting an absent collection is not an error.
	Delete(ctx context.Context, name string) error

	// Apply commits every operation of the batch, or none of them.
	Apply(ctx context.Context, b Batch) error

	// Close closes the store.
	Close() error
}

type batchOp struct {
	name   string
	doc    json.RawMessage
	delete bool
}

// Batch is an ordered set of writes applied atomically by Store.Apply.
type Batch struct {
	ops []batchOp
}

// Put queues a full replacement of a collection.
func (b *Batch) Put(name string, doc json.RawMessage) {
	b.ops = append(b.ops, batchOp{name: name, doc: doc})
}

// Delete queues the removal of a collection.
func (b *Batch) Delete(name string) {
	b.ops = append(b.ops, batchOp{name: name, delete: true})
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// PutItems queues items as the new content of a collection.
func PutItems[T any](b *Batch, name string, items []T) error {
	doc, err := encodeItems(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	b.Put(name, doc)
	return nil
}

// PutOne queues v as the singleton document of a collection.
func PutOne[T any](b *Batch, name string, v T) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	b.Put(name, doc)
	return nil
}

// Load decodes every record of a collection. Records that fail to decode are
// skipped and logged, keeping the rest of the collection usable.
func Load[T any](ctx context.Context, s Store, name string, log *slog.Logger) ([]T, error) {
	records, err := s.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	items := make([]T, 0, len(records))
	for i, r := range records {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			if log != nil {
				log.Warn("skipping malformed record", "collection", name, "index", i, "err", err)
			}
			continue
		}
		items = append(items, v)
	}
	return items, nil
}

// LoadOne decodes the first record of a singleton collection. ok is false when
// the collection is absent or malformed.
func LoadOne[T any](ctx context.Context, s Store, name string, log *slog.Logger) (v T, ok bool, err error) {
	items, err := Load[T](ctx, s, name, log)
	if err != nil || len(items) == 0 {
		return v, false, err
	}
	return items[0], true, nil
}

// Save replaces a collection with items.
func Save[T any](ctx context.Context, s Store, name string, items []T) error {
	doc, err := encodeItems(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.Put(ctx, name, doc); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// SaveOne stores v as the singleton document of a collection.
func SaveOne[T any](ctx context.Context, s Store, name string, v T) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.Put(ctx, name, doc); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func encodeItems[T any](items []T) (json.RawMessage, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// splitDocument turns a stored document into records. ok is false for
// documents that are neither an array nor an object.
func splitDocument(doc []byte) (records []json.RawMessage, ok bool) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return nil, false
	}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, false
		}
		return records, true
	case '{':
		if !json.Valid(trimmed) {
			return nil, false
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, true
	}
	return nil, false
}
