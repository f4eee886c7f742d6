package insight

import (
	"time"

	"github.com/rcliao/babbly/internal/model"
)

// Prediction is the suggested next activity.
type Prediction struct {
	Type  model.EventType `json:"type"`
	Label string          `json:"label"`
}

const (
	feedDue  = 3 * time.Hour
	napAfter = 2 * time.Hour
)

// PredictNextActivity guesses what the caregiver will log next. It returns nil
// when there is no strong prediction.
//
// A sleep is usually followed by a diaper change and a diaper change by a feed.
// Otherwise a feed is due when the latest feed is more than three hours old,
// and a nap when the latest completed sleep ended at least two hours ago.
func PredictNextActivity(events []model.Event, now time.Time) *Prediction {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	model.SortNewestFirst(sorted)

	switch sorted[0].Type {
	case model.TypeSleep:
		return &Prediction{Type: model.TypeDiaper, Label: "Diaper Change"}
	case model.TypeDiaper:
		return &Prediction{Type: model.TypeFeed, Label: "Feed Time"}
	}

	for _, e := range sorted {
		if e.Type != model.TypeFeed {
			continue
		}
		if now.Sub(e.StartTime) > feedDue {
			return &Prediction{Type: model.TypeFeed, Label: "Feed Due"}
		}
		break
	}

	for _, e := range sorted {
		if e.Type != model.TypeSleep {
			continue
		}
		end, ok := e.EffectiveEnd()
		if !ok {
			continue
		}
		if now.Sub(end) >= napAfter {
			return &Prediction{Type: model.TypeSleep, Label: "Nap Time"}
		}
		break
	}

	return nil
}
