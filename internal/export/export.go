// Package export writes the event log in portable formats for sharing with
// pediatricians or other tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rcliao/babbly/internal/model"
)

// ErrNoEvents is returned when there is nothing to export.
var ErrNoEvents = errors.New("no events to export")

// TimeLayout is the layout used for times in CSV and summary output.
const TimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"Type", "Start Time", "End Time", "Details", "Created By", "Created At"}

// WriteCSV writes one row per event, in the order given. Details holds the
// metadata as JSON. Times are rendered in loc.
func WriteCSV(w io.Writer, events []model.Event, loc *time.Location) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	if loc == nil {
		loc = time.Local
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range events {
		details, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode %s metadata: %w", e.ID, err)
		}
		end := ""
		if e.EndTime != nil {
			end = e.EndTime.In(loc).Format(TimeLayout)
		}
		row := []string{
			string(e.Type),
			e.StartTime.In(loc).Format(TimeLayout),
			end,
			string(details),
			e.CreatedBy,
			e.CreatedAt.In(loc).Format(TimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Document is the full JSON backup.
type Document struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exportedAt"`
	Profile    model.Profile `json:"profile"`
	Events     []model.Event `json:"events"`
}

// WriteJSON writes an indented backup of the profile and events.
func WriteJSON(w io.Writer, profile model.Profile, events []model.Event, now time.Time) error {
	if events == nil {
		events = []model.Event{}
	}
	doc := Document{Version: 2, ExportedAt: now, Profile: profile, Events: events}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// WriteSummary writes a plain-text visit summary: a heading with the baby's
// name and one aligned row per event.
func WriteSummary(w io.Writer, profile model.Profile, events []model.Event, now time.Time, loc *time.Location) error {
	if len(events) == 0 {
		return ErrNoEvents
	}
	if loc == nil {
		loc = time.Local
	}
	name := profile.Name
	if name == "" {
		name = "Baby"
	}

	fmt.Fprintf(w, "Babbly Summary: %s\n", name)
	fmt.Fprintf(w, "Generated: %s\n\n", now.In(loc).Format("2006-01-02"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVITY\tTIME\tDETAILS")
	for _, e := range events {
		details, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode %s metadata: %w", e.ID, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			strings.ToUpper(string(e.Type)),
			e.StartTime.In(loc).Format(TimeLayout),
			details)
	}
	return tw.Flush()
}

// WriteShareCard writes a plain-text card for sharing one memory.
func WriteShareCard(w io.Writer, m model.Memory, profileName string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	if profileName == "" {
		profileName = "Baby"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s · %s\n\n", strings.ToUpper(m.Timestamp.In(loc).Format("January 2, 2006")), profileName)
	if m.MediaRef != "" {
		fmt.Fprintf(&b, "[%s]\n\n", m.MediaRef)
	}
	fmt.Fprintf(&b, "%s\n%s\n\n", m.Title, m.Content)
	b.WriteString("BABBLY\n")

	_, err := io.WriteString(w, b.String())
	return err
}
