package model

import "time"

// Memory is a curated narrative entry derived from events or written by hand.
// SourceKey identifies the milestone that produced it and is empty for
// user-created memories.
type Memory struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	MoodColor  string    `json:"moodColor"`
	MediaRef   string    `json:"mediaRef,omitempty"`
	IsFavorite bool      `json:"isFavorite"`
	SourceKey  string    `json:"sourceKey,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MemoryPatch holds the fields of a user edit; nil fields are left alone.
// An empty MediaRef removes the attached media.
type MemoryPatch struct {
	Title      *string
	Content    *string
	MoodColor  *string
	MediaRef   *string
	IsFavorite *bool
	Timestamp  *time.Time
}

// Apply returns m with the patch merged in. UpdatedAt is left to the caller.
func (m Memory) Apply(p MemoryPatch) Memory {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.MoodColor != nil {
		m.MoodColor = *p.MoodColor
	}
	if p.MediaRef != nil {
		m.MediaRef = *p.MediaRef
	}
	if p.IsFavorite != nil {
		m.IsFavorite = *p.IsFavorite
	}
	if p.Timestamp != nil {
		m.Timestamp = *p.Timestamp
	}
	return m
}
