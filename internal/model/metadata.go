package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is the type-specific payload of an Event. The concrete variants are
// FeedMeta, DiaperMeta, SleepMeta, PumpMeta, MedicationMeta, TempMeta and NoteMeta.
type Metadata interface {
	Kind() EventType
	// NotesText returns the free-text content used by search.
	NotesText() string

	withDefaults() Metadata
	validate() error
}

// FeedMeta describes a breast or bottle feed.
type FeedMeta struct {
	SubType string `json:"subType,omitempty"`
	Side    string `json:"side,omitempty"`
	Amount  Text   `json:"amount,omitempty"`
	Burped  *bool  `json:"burped,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// DiaperMeta describes a diaper change. The flags are always encoded.
type DiaperMeta struct {
	Condition       string `json:"condition,omitempty"`
	Color           string `json:"color,omitempty"`
	Texture         string `json:"texture,omitempty"`
	AmountLevel     string `json:"amountLevel,omitempty"`
	HasRash         bool   `json:"hasRash"`
	HasUnusualSmell bool   `json:"hasUnusualSmell"`
	IsBlowout       bool   `json:"isBlowout"`
	Notes           string `json:"notes,omitempty"`
}

// SleepMeta describes a sleep segment. Duration is in milliseconds.
type SleepMeta struct {
	Location string `json:"location,omitempty"`
	Quality  Int    `json:"quality,omitempty"`
	Duration Int    `json:"duration,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// PumpMeta describes a pumping session.
type PumpMeta struct {
	Side            string `json:"side,omitempty"`
	PumpType        string `json:"pumpType,omitempty"`
	Storage         string `json:"storage,omitempty"`
	DiscomfortLevel Int    `json:"discomfortLevel,omitempty"`
	Amount          Text   `json:"amount,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// MedicationMeta describes a dose given.
type MedicationMeta struct {
	Name  string `json:"name,omitempty"`
	Dose  Text   `json:"dose,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// TempMeta describes a temperature reading.
type TempMeta struct {
	Value Text   `json:"value,omitempty"`
	Unit  string `json:"unit,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// NoteMeta is a free-form note.
type NoteMeta struct {
	Text  string `json:"text,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func (FeedMeta) Kind() EventType       { return TypeFeed }
func (DiaperMeta) Kind() EventType     { return TypeDiaper }
func (SleepMeta) Kind() EventType      { return TypeSleep }
func (PumpMeta) Kind() EventType       { return TypePump }
func (MedicationMeta) Kind() EventType { return TypeMedication }
func (TempMeta) Kind() EventType       { return TypeTemp }
func (NoteMeta) Kind() EventType       { return TypeNote }

func (m FeedMeta) NotesText() string       { return m.Notes }
func (m DiaperMeta) NotesText() string     { return m.Notes }
func (m SleepMeta) NotesText() string      { return m.Notes }
func (m PumpMeta) NotesText() string       { return m.Notes }
func (m MedicationMeta) NotesText() string { return joinText(string(m.Name), m.Notes) }
func (m TempMeta) NotesText() string       { return m.Notes }
func (m NoteMeta) NotesText() string       { return joinText(m.Text, m.Notes) }

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func (m FeedMeta) withDefaults() Metadata {
	if m.SubType == "" {
		m.SubType = "breast"
	}
	return m
}

// The diaper flags default to false, which is their zero value.
func (m DiaperMeta) withDefaults() Metadata {
	if m.Condition == "" {
		m.Condition = "wet"
	}
	return m
}

func (m SleepMeta) withDefaults() Metadata {
	if m.Location == "" {
		m.Location = "crib"
	}
	if m.Quality == 0 {
		m.Quality = 3
	}
	return m
}

func (m PumpMeta) withDefaults() Metadata {
	if m.Side == "" {
		m.Side = "both"
	}
	if m.PumpType == "" {
		m.PumpType = "electric"
	}
	return m
}

func (m MedicationMeta) withDefaults() Metadata { return m }
func (m TempMeta) withDefaults() Metadata       { return m }
func (m NoteMeta) withDefaults() Metadata       { return m }

func (m FeedMeta) validate() error {
	return oneOf("feed subType", m.SubType, "", "breast", "bottle")
}

func (m DiaperMeta) validate() error {
	return oneOf("diaper condition", m.Condition, "", "wet", "dirty", "both", "dry")
}

func (m SleepMeta) validate() error {
	if m.Quality != 0 && (m.Quality < 1 || m.Quality > 5) {
		return fmt.Errorf("%w: sleep quality %d outside 1-5", ErrInvalidEvent, m.Quality)
	}
	if m.Duration < 0 {
		return fmt.Errorf("%w: negative sleep duration", ErrInvalidEvent)
	}
	return nil
}

func (m PumpMeta) validate() error {
	if m.DiscomfortLevel < 0 || m.DiscomfortLevel > 3 {
		return fmt.Errorf("%w: discomfort level %d outside 1-3", ErrInvalidEvent, m.DiscomfortLevel)
	}
	return nil
}

func (m MedicationMeta) validate() error { return nil }

func (m TempMeta) validate() error {
	return oneOf("temp unit", m.Unit, "", "F", "C")
}

func (m NoteMeta) validate() error { return nil }

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q", ErrInvalidEvent, field, v)
}

// WithDefaults fills unset fields of m with the defaults for its kind.
// Fields already set are never overwritten.
func WithDefaults(m Metadata) Metadata {
	return m.withDefaults()
}

// NewMetadata returns the empty variant for t.
func NewMetadata(t EventType) (Metadata, error) {
	switch t {
	case TypeFeed:
		return FeedMeta{}, nil
	case TypeDiaper:
		return DiaperMeta{}, nil
	case TypeSleep:
		return SleepMeta{}, nil
	case TypePump:
		return PumpMeta{}, nil
	case TypeMedication:
		return MedicationMeta{}, nil
	case TypeTemp:
		return TempMeta{}, nil
	case TypeNote:
		return NoteMeta{}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, t)
}

// DecodeMetadata decodes raw JSON into the variant for t. Empty or null input
// yields the empty variant. Fields outside the variant are ignored.
func DecodeMetadata(t EventType, raw json.RawMessage) (Metadata, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NewMetadata(t)
	}
	switch t {
	case TypeFeed:
		return decodeAs[FeedMeta](raw)
	case TypeDiaper:
		return decodeAs[DiaperMeta](raw)
	case TypeSleep:
		return decodeAs[SleepMeta](raw)
	case TypePump:
		return decodeAs[PumpMeta](raw)
	case TypeMedication:
		return decodeAs[MedicationMeta](raw)
	case TypeTemp:
		return decodeAs[TempMeta](raw)
	case TypeNote:
		return decodeAs[NoteMeta](raw)
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, t)
}

func decodeAs[T Metadata](raw json.RawMessage) (Metadata, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", v.Kind(), err)
	}
	return v, nil
}
