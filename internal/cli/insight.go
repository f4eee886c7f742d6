package cli

import (
	"errors"
	"fmt"

	"github.com/rcliao/babbly/internal/insight"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "highlights",
		Short: "Show cluster-feeding and long-stretch highlights",
		Run:   runHighlights,
	})

	timeline := &cobra.Command{
		Use:   "timeline",
		Short: "Show events with highlights placed after their anchor",
		Run:   runTimeline,
	}
	timeline.Flags().IntP("limit", "l", 50, "Max events (0 for all)")
	RootCmd.AddCommand(timeline)

	RootCmd.AddCommand(&cobra.Command{
		Use:   "predict",
		Short: "Suggest the next likely activity",
		Run:   runPredict,
	})

	story := &cobra.Command{
		Use:   "story",
		Short: "Write the daily summary",
		Run:   runStory,
	}
	story.Flags().String("date", "", "Day to summarize, e.g. 2025-03-10 or -24h (default today)")
	RootCmd.AddCommand(story)
}

func runHighlights(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	hs := insight.AnalyzeClusters(a.events.Events())
	if textOutput() {
		for _, h := range hs {
			fmt.Println(formatHighlight(h))
		}
		return
	}
	if hs == nil {
		hs = []insight.Highlight{}
	}
	printJSON(hs)
}

func runTimeline(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	evs := a.events.Events()
	items := insight.BuildTimeline(evs, insight.AnalyzeClusters(evs))

	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 {
		items = limitTimeline(items, limit)
	}

	if !textOutput() {
		printJSON(items)
		return
	}
	for _, it := range items {
		if it.Highlight != nil {
			fmt.Println(formatHighlight(*it.Highlight))
			continue
		}
		fmt.Println(formatEvent(*it.Event, a.loc))
	}
}

// limitTimeline keeps the first n events and the highlights that follow them.
func limitTimeline(items []insight.TimelineItem, n int) []insight.TimelineItem {
	seen := 0
	for i, it := range items {
		if it.Event == nil {
			continue
		}
		if seen == n {
			return items[:i]
		}
		seen++
	}
	return items
}

func runPredict(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	p := insight.PredictNextActivity(a.events.Events(), a.now())
	if textOutput() {
		if p == nil {
			fmt.Println("No prediction yet.")
			return
		}
		fmt.Println(p.Label)
		return
	}
	printJSON(p)
}

func runStory(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	day := a.now()
	if s, _ := cmd.Flags().GetString("date"); s != "" {
		var err error
		if day, err = parseTime(s, a.now()); err != nil {
			exitErr("story", err)
		}
	}

	st := insight.GenerateDailyStory(a.events.Events(), day)
	if st == nil {
		exitErr("story", errors.New("not enough events logged that day"))
	}
	if textOutput() {
		fmt.Printf("%s (%s)\n\n%s\n", st.Title, day.Format("2006-01-02"), st.Body)
		return
	}
	printJSON(st)
}
