package insight

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rcliao/babbly/internal/model"
)

// Story is the narrative summary of one day.
type Story struct {
	Title string     `json:"title"`
	Body  string     `json:"body"`
	Stats StoryStats `json:"stats"`
}

// StoryStats are the counts a Story is built from. SleepHours is rounded to
// one decimal.
type StoryStats struct {
	Feeds      int     `json:"feeds"`
	Diapers    int     `json:"diapers"`
	SleepHours float64 `json:"sleep"`
}

const (
	minStoryEvents = 3
	busyFeeds      = 10
	manyDiapers    = 8
	solidSleep     = 4.0
)

// GenerateDailyStory summarizes the events that started on the calendar day of
// day, in day's location. It returns nil when fewer than three events fall on
// that day. Only recorded sleep durations count; ongoing sleep adds nothing.
func GenerateDailyStory(events []model.Event, day time.Time) *Story {
	var daily []model.Event
	for _, e := range events {
		if model.SameDay(e.StartTime, day) {
			daily = append(daily, e)
		}
	}
	if len(daily) < minStoryEvents {
		return nil
	}

	var feeds, diapers int
	var total, longest time.Duration
	for _, e := range daily {
		switch e.Type {
		case model.TypeFeed:
			feeds++
		case model.TypeDiaper:
			diapers++
		case model.TypeSleep:
			d := e.StoredDuration()
			total += d
			if d > longest {
				longest = d
			}
		}
	}

	sleepHours := round1(total.Hours())
	longestHours := round1(longest.Hours())

	var parts []string
	if feeds > busyFeeds {
		parts = append(parts, fmt.Sprintf("A busy feeding day with %d recorded sessions.", feeds))
	} else {
		parts = append(parts, fmt.Sprintf("You recorded %d feeds today.", feeds))
	}

	if diapers >= manyDiapers {
		parts = append(parts, "Lots of diaper changes!")
	}

	switch {
	case longestHours > solidSleep:
		parts = append(parts, fmt.Sprintf("We noticed a solid stretch of sleep hitting %.1f hours. Nice!", longestHours))
	case sleepHours > 0:
		parts = append(parts, fmt.Sprintf("Total sleep logged was around %.1f hours.", sleepHours))
	default:
		parts = append(parts, "No sleep recorded today.")
	}

	parts = append(parts, "You're doing great. See you tomorrow.")

	return &Story{
		Title: "Daily Summary",
		Body:  strings.Join(parts, " "),
		Stats: StoryStats{Feeds: feeds, Diapers: diapers, SleepHours: sleepHours},
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
