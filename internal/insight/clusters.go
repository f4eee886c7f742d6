// Package insight derives highlights, predictions and daily narratives from a
// snapshot of events. Every function is pure: the same events and instant
// always produce the same result.
package insight

import (
	"fmt"
	"time"

	"github.com/rcliao/babbly/internal/model"
)

// HighlightType names a kind of highlight.
type HighlightType string

const (
	ClusterFeed HighlightType = "cluster_feed"
	LongSleep   HighlightType = "long_sleep"
)

const (
	clusterWindow  = 4 * time.Hour
	clusterSize    = 4
	longGap        = 8 * time.Hour
	minClusterScan = 3
)

// Highlight is a recomputed-on-read insight rendered right after the event
// InsertAfterID in a newest-first timeline.
type Highlight struct {
	Type          HighlightType `json:"type"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	RelatedIDs    []string      `json:"relatedIds,omitempty"`
	InsertAfterID string        `json:"insertAfterId"`
}

// AnalyzeClusters finds cluster feeding runs and long gaps after sleep.
//
// Feeds are scanned newest first. The most recent unclustered feed anchors a
// window; each earlier feed within the window of the anchor joins it, and the
// fourth feed closes the run with one highlight. A feed outside the window
// starts a new one. Separately, a sleep followed by more than eight hours
// without another event yields a long sleep highlight.
func AnalyzeClusters(events []model.Event) []Highlight {
	if len(events) < minClusterScan {
		return nil
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	model.SortNewestFirst(sorted)

	var highlights []Highlight

	var anchor time.Time
	var run []string
	for _, e := range sorted {
		if e.Type != model.TypeFeed {
			continue
		}
		if run == nil || anchor.Sub(e.StartTime) > clusterWindow {
			anchor = e.StartTime
			run = []string{e.ID}
			continue
		}
		run = append(run, e.ID)
		if len(run) >= clusterSize {
			highlights = append(highlights, Highlight{
				Type:          ClusterFeed,
				Title:         "Cluster Feeding Active",
				Message:       "4+ feeds in a short window. Totally normal growth spurt behavior!",
				RelatedIDs:    run,
				InsertAfterID: e.ID,
			})
			run = nil
		}
	}

	for i := 0; i+1 < len(sorted); i++ {
		later, earlier := sorted[i], sorted[i+1]
		gap := later.StartTime.Sub(earlier.StartTime)
		if earlier.Type != model.TypeSleep || gap <= longGap {
			continue
		}
		highlights = append(highlights, Highlight{
			Type:          LongSleep,
			Title:         "A Nice Long Stretch",
			Message:       fmt.Sprintf("Wow, %d hours since the last recorded sleep cycle.", int(gap.Hours())),
			InsertAfterID: earlier.ID,
		})
	}

	return highlights
}

// TimelineItem is one row of a rendered timeline: an event or a highlight.
type TimelineItem struct {
	Event     *model.Event `json:"event,omitempty"`
	Highlight *Highlight   `json:"highlight,omitempty"`
}

// BuildTimeline orders events newest first and places every highlight right
// after the event it is anchored to. Highlights with an unknown anchor are dropped.
func BuildTimeline(events []model.Event, highlights []Highlight) []TimelineItem {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	model.SortNewestFirst(sorted)

	byAnchor := make(map[string][]Highlight, len(highlights))
	for _, h := range highlights {
		byAnchor[h.InsertAfterID] = append(byAnchor[h.InsertAfterID], h)
	}

	items := make([]TimelineItem, 0, len(sorted)+len(highlights))
	for i := range sorted {
		e := sorted[i]
		items = append(items, TimelineItem{Event: &e})
		for j := range byAnchor[e.ID] {
			h := byAnchor[e.ID][j]
			items = append(items, TimelineItem{Highlight: &h})
		}
	}
	return items
}
