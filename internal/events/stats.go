package events

import (
	"time"

	"github.com/rcliao/babbly/internal/model"
)

// DayStats summarizes one calendar day.
type DayStats struct {
	Feeds      int     `json:"feeds"`
	Diapers    int     `json:"diapers"`
	SleepHours float64 `json:"sleep_hours"`
}

// TodayStats aggregates the events that started on the current local day.
// Ongoing sleep accrues up to now.
func (s *Store) TodayStats() DayStats {
	return StatsFor(s.Events(), s.now())
}

// StatsFor aggregates events starting on the calendar day of now, in now's location.
func StatsFor(events []model.Event, now time.Time) DayStats {
	var st DayStats
	var sleep time.Duration
	for _, e := range events {
		if !model.SameDay(e.StartTime, now) {
			continue
		}
		switch e.Type {
		case model.TypeFeed:
			st.Feeds++
		case model.TypeDiaper:
			st.Diapers++
		case model.TypeSleep:
			sleep += e.SleepDuration(now)
		}
	}
	st.SleepHours = sleep.Hours()
	return st
}
