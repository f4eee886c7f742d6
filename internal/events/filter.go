package events

import (
	"strings"
	"time"

	"github.com/rcliao/babbly/internal/model"
)

// Filter selects events for List.
type Filter struct {
	Types []model.EventType
	From  *time.Time
	To    *time.Time
	Query string
	Limit int
}

// List returns events matching f, newest first by start time.
func (s *Store) List(f Filter) []model.Event {
	return Match(s.Events(), f)
}

// Match applies f to events.
func Match(events []model.Event, f Filter) []model.Event {
	out := make([]model.Event, 0)
	q := strings.ToLower(strings.TrimSpace(f.Query))

	for _, e := range events {
		if len(f.Types) > 0 && !hasType(f.Types, e.Type) {
			continue
		}
		if f.From != nil && e.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && e.StartTime.After(*f.To) {
			continue
		}
		if q != "" {
			hay := strings.ToLower(string(e.Type) + " " + e.Metadata.NotesText())
			if !strings.Contains(hay, q) {
				continue
			}
		}
		out = append(out, e)
	}

	model.SortNewestFirst(out)

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func hasType(types []model.EventType, t model.EventType) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
