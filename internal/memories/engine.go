// Package memories curates milestone memories from the event log and owns the
// memory collection.
package memories

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/babbly/internal/model"
)

// namespace seeds the name-based ids of generated memories, so the same
// milestone always maps to the same memory id.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://babbly.app/memories"))

// Mood colors.
const (
	MoodFeed      = "#f59e0b"
	MoodSleep     = "#6366f1"
	MoodDiaper    = "#10b981"
	MoodHealth    = "#ef4444"
	MoodMilestone = "#ec4899"
	MoodNote      = "#64748b"
)

// Milestone is a memory-worthy moment found by a Rule.
type Milestone struct {
	Key     string
	Event   model.Event
	Title   string
	Content string
	Mood    string
}

// Rule scans events, ordered oldest first, for milestones. Keys must be
// stable across scans.
type Rule func(events []model.Event) []Milestone

// Engine turns milestones into memories.
type Engine struct {
	Rules []Rule
}

// NewEngine returns an engine with the default rules.
func NewEngine() *Engine {
	return &Engine{Rules: []Rule{FirstOfEachType, FirstBottle, FirstBlowout, FeedCounts, LongestSleeps}}
}

// Generate returns the memories for milestones whose key is neither in
// existing nor in dismissed, newest first. It never mutates its inputs.
func (e *Engine) Generate(events []model.Event, existing []model.Memory, dismissed []string, now time.Time) []model.Memory {
	if len(events) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(existing)+len(dismissed))
	for _, m := range existing {
		if m.SourceKey != "" {
			seen[m.SourceKey] = true
		}
		seen[m.ID] = true
	}
	for _, k := range dismissed {
		seen[k] = true
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var out []model.Memory
	for _, rule := range e.Rules {
		for _, ms := range rule(sorted) {
			id := MemoryID(ms.Key)
			if seen[ms.Key] || seen[id] {
				continue
			}
			seen[ms.Key] = true
			out = append(out, model.Memory{
				ID:        id,
				Timestamp: ms.Event.StartTime,
				Title:     ms.Title,
				Content:   ms.Content,
				MoodColor: ms.Mood,
				SourceKey: ms.Key,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// MemoryID is the id of the memory generated for a milestone key.
func MemoryID(key string) string {
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

var firsts = []struct {
	typ     model.EventType
	title   string
	content string
	mood    string
}{
	{model.TypeFeed, "First Feed Logged", "The very first feed in the journal. Many more cozy sessions to come.", MoodFeed},
	{model.TypeDiaper, "First Diaper Change", "The first diaper change on record. You've officially begun.", MoodDiaper},
	{model.TypeSleep, "First Sleep Logged", "The first nap in the journal. Sweet dreams, little one.", MoodSleep},
	{model.TypePump, "First Pumping Session", "The first pumping session logged. Every drop counts.", MoodFeed},
	{model.TypeMedication, "First Medicine", "The first dose on record, handled with care.", MoodHealth},
	{model.TypeTemp, "First Temperature Check", "The first temperature reading in the journal.", MoodHealth},
	{model.TypeNote, "First Note", "The first note written down. Little moments matter.", MoodNote},
}

// FirstOfEachType marks the earliest event of every type.
func FirstOfEachType(events []model.Event) []Milestone {
	var out []Milestone
	for _, f := range firsts {
		for _, e := range events {
			if e.Type != f.typ {
				continue
			}
			out = append(out, Milestone{
				Key:     "first:" + string(f.typ),
				Event:   e,
				Title:   f.title,
				Content: f.content,
				Mood:    f.mood,
			})
			break
		}
	}
	return out
}

// FirstBottle marks the first bottle feed.
func FirstBottle(events []model.Event) []Milestone {
	for _, e := range events {
		if fm, ok := e.Metadata.(model.FeedMeta); ok && fm.SubType == "bottle" {
			content := "The first bottle feed."
			if fm.Amount != "" {
				content = fmt.Sprintf("The first bottle feed: %s down the hatch.", fm.Amount)
			}
			return []Milestone{{Key: "first:bottle", Event: e, Title: "First Bottle", Content: content, Mood: MoodFeed}}
		}
	}
	return nil
}

// FirstBlowout marks the first blowout diaper.
func FirstBlowout(events []model.Event) []Milestone {
	for _, e := range events {
		if dm, ok := e.Metadata.(model.DiaperMeta); ok && dm.IsBlowout {
			return []Milestone{{
				Key:     "first:blowout",
				Event:   e,
				Title:   "First Blowout",
				Content: "Every parent's rite of passage. You survived it!",
				Mood:    MoodDiaper,
			}}
		}
	}
	return nil
}

// FeedCountMilestones are the feed totals worth celebrating.
var FeedCountMilestones = []int{10, 50, 100, 250, 500, 1000}

// FeedCounts marks the feed that reached each total in FeedCountMilestones.
func FeedCounts(events []model.Event) []Milestone {
	var out []Milestone
	n, next := 0, 0
	for _, e := range events {
		if e.Type != model.TypeFeed {
			continue
		}
		n++
		if next < len(FeedCountMilestones) && n == FeedCountMilestones[next] {
			out = append(out, Milestone{
				Key:     fmt.Sprintf("feeds:%d", n),
				Event:   e,
				Title:   fmt.Sprintf("%d Feeds!", n),
				Content: fmt.Sprintf("That's %d feeds logged. Look how far you've come together.", n),
				Mood:    MoodMilestone,
			})
			next++
		}
	}
	return out
}

// SleepStretchHours are the sleep lengths worth celebrating.
var SleepStretchHours = []int{4, 6, 8}

// LongestSleeps marks the first sleep reaching each length in SleepStretchHours.
// Ongoing sleep is not counted until it ends.
func LongestSleeps(events []model.Event) []Milestone {
	var out []Milestone
	for _, h := range SleepStretchHours {
		threshold := time.Duration(h) * time.Hour
		for _, e := range events {
			if e.Type != model.TypeSleep || e.StoredDuration() < threshold {
				continue
			}
			out = append(out, Milestone{
				Key:     fmt.Sprintf("sleep:%dh", h),
				Event:   e,
				Title:   fmt.Sprintf("First %d-Hour Sleep", h),
				Content: fmt.Sprintf("A %.1f hour stretch of sleep. Rest well, everyone.", e.StoredDuration().Hours()),
				Mood:    MoodSleep,
			})
			break
		}
	}
	return out
}
