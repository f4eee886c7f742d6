package cli

import (
	"fmt"

	"github.com/rcliao/babbly/internal/insight"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show today's feeds, diapers and sleep",
		Run:   runToday,
	}

	RootCmd.AddCommand(cmd)
}

func runToday(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	stats := a.events.TodayStats()
	next := insight.PredictNextActivity(a.events.Events(), a.now())

	if textOutput() {
		fmt.Println(formatStats(stats))
		if next != nil {
			fmt.Printf("Next up: %s\n", next.Label)
		}
		return
	}
	printJSON(map[string]any{
		"date":  a.now().Format("2006-01-02"),
		"stats": stats,
		"next":  next,
	})
}
