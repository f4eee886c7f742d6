package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/export"
	"github.com/rcliao/babbly/internal/insight"
	"github.com/rcliao/babbly/internal/model"
)

// formatEvent renders one event line for text output.
func formatEvent(e model.Event, loc *time.Location) string {
	return formatEventAt(e, loc, time.Now())
}

func formatEventAt(e model.Event, loc *time.Location, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-10s", e.StartTime.In(loc).Format(export.TimeLayout), e.Type)
	if e.EndTime != nil {
		fmt.Fprintf(&b, " until %s", e.EndTime.In(loc).Format("15:04"))
	} else if e.IsOngoing() {
		b.WriteString(" ongoing")
	}
	if details, err := json.Marshal(e.Metadata); err == nil && string(details) != "{}" {
		fmt.Fprintf(&b, " %s", details)
	}
	fmt.Fprintf(&b, "  (%s) [%s]", humanize.RelTime(e.StartTime, now, "ago", "from now"), e.ID)
	return b.String()
}

func printEvents(list []model.Event, loc *time.Location) {
	if !textOutput() {
		if list == nil {
			list = []model.Event{}
		}
		printJSON(list)
		return
	}
	for _, e := range list {
		fmt.Println(formatEvent(e, loc))
	}
}

func formatStats(s events.DayStats) string {
	return fmt.Sprintf("Feeds: %d  Diapers: %d  Sleep: %.1fh", s.Feeds, s.Diapers, s.SleepHours)
}

func formatHighlight(h insight.Highlight) string {
	return fmt.Sprintf("  * %s: %s", h.Title, h.Message)
}

func formatMemory(m model.Memory, loc *time.Location) string {
	star := " "
	if m.IsFavorite {
		star = "*"
	}
	return fmt.Sprintf("%s %s  %s  %s [%s]", star, m.Timestamp.In(loc).Format("2006-01-02"), m.Title, m.Content, m.ID)
}
