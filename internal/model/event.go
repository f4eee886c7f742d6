// Package model defines the core journal data types.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType is the closed set of loggable caregiving actions.
type EventType string

const (
	TypeFeed       EventType = "feed"
	TypeDiaper     EventType = "diaper"
	TypeSleep      EventType = "sleep"
	TypePump       EventType = "pump"
	TypeMedication EventType = "medication"
	TypeTemp       EventType = "temp"
	TypeNote       EventType = "note"
)

// EventTypes lists every valid event type.
var EventTypes = []EventType{
	TypeFeed, TypeDiaper, TypeSleep, TypePump, TypeMedication, TypeTemp, TypeNote,
}

// LocalUser is the creator recorded for events logged on this device.
const LocalUser = "local_user"

// ErrInvalidEvent is wrapped by every validation failure.
var ErrInvalidEvent = errors.New("invalid event")

// Valid reports whether t is one of EventTypes.
func (t EventType) Valid() bool {
	for _, v := range EventTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseEventType converts a string to an EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, s)
	}
	return t, nil
}

// Event is one logged caregiving occurrence. Events are replaced, never mutated in place.
type Event struct {
	ID        string
	Type      EventType
	StartTime time.Time
	EndTime   *time.Time
	Metadata  Metadata
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type eventJSON struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	StartTime time.Time       `json:"startTime"`
	EndTime   *time.Time      `json:"endTime"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// MarshalJSON encodes the event with its metadata variant inline.
func (e Event) MarshalJSON() ([]byte, error) {
	md := e.Metadata
	if md == nil {
		var err error
		if md, err = NewMetadata(e.Type); err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return json.Marshal(eventJSON{
		ID:        e.ID,
		Type:      e.Type,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Metadata:  raw,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	})
}

// UnmarshalJSON decodes metadata into the variant selected by type.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	md, err := DecodeMetadata(raw.Type, raw.Metadata)
	if err != nil {
		return err
	}
	*e = Event{
		ID:        raw.ID,
		Type:      raw.Type,
		StartTime: raw.StartTime,
		EndTime:   raw.EndTime,
		Metadata:  md,
		CreatedBy: raw.CreatedBy,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}
	return nil
}

// Validate checks the type, metadata shape and time bounds.
func (e Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.Metadata == nil {
		return fmt.Errorf("%w: missing metadata", ErrInvalidEvent)
	}
	if e.Metadata.Kind() != e.Type {
		return fmt.Errorf("%w: %s metadata on %s event", ErrInvalidEvent, e.Metadata.Kind(), e.Type)
	}
	if e.StartTime.IsZero() {
		return fmt.Errorf("%w: start time required", ErrInvalidEvent)
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return fmt.Errorf("%w: end time before start time", ErrInvalidEvent)
	}
	return e.Metadata.validate()
}

// Clone returns a copy that shares no pointers with e.
func (e Event) Clone() Event {
	if e.EndTime != nil {
		t := *e.EndTime
		e.EndTime = &t
	}
	return e
}

// recordedDuration is the sleep duration stored in metadata, if any.
func (e Event) recordedDuration() time.Duration {
	if sm, ok := e.Metadata.(SleepMeta); ok && sm.Duration > 0 {
		return time.Duration(sm.Duration) * time.Millisecond
	}
	return 0
}

// IsOngoing reports whether e is a sleep with neither an end nor a recorded duration.
func (e Event) IsOngoing() bool {
	return e.Type == TypeSleep && e.EndTime == nil && e.recordedDuration() == 0
}

// EffectiveEnd returns the end instant, derived from the recorded duration when
// no end time is stored. ok is false for open-ended events.
func (e Event) EffectiveEnd() (end time.Time, ok bool) {
	if e.EndTime != nil {
		return *e.EndTime, true
	}
	if d := e.recordedDuration(); d > 0 {
		return e.StartTime.Add(d), true
	}
	return time.Time{}, false
}

// StoredDuration is the bounded duration of e, or zero when it has none.
func (e Event) StoredDuration() time.Duration {
	if e.EndTime != nil {
		return e.EndTime.Sub(e.StartTime)
	}
	return e.recordedDuration()
}

// SleepDuration is StoredDuration, except that an ongoing sleep accrues up to now.
func (e Event) SleepDuration(now time.Time) time.Duration {
	if !e.IsOngoing() {
		return e.StoredDuration()
	}
	if d := now.Sub(e.StartTime); d > 0 {
		return d
	}
	return 0
}
