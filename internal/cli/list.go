package cli

import (
	"strings"

	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events, newest first",
		Run:   runList,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by types (comma-separated)")
	cmd.Flags().String("from", "", "Only events starting at or after this time")
	cmd.Flags().String("to", "", "Only events starting before this time")
	cmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")

	RootCmd.AddCommand(cmd)

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search event types and notes",
		Args:  cobra.MinimumNArgs(1),
		Run:   runList,
	}
	search.Flags().IntP("limit", "l", 20, "Max results (0 for all)")

	RootCmd.AddCommand(search)
}

func runList(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	f, err := listFilter(cmd, args, a)
	if err != nil {
		exitErr(cmd.Name(), err)
	}
	printEvents(a.events.List(f), a.loc)
}

func listFilter(cmd *cobra.Command, args []string, a *app) (events.Filter, error) {
	var f events.Filter
	f.Limit, _ = cmd.Flags().GetInt("limit")
	if len(args) > 0 {
		f.Query = strings.Join(args, " ")
	}

	if cmd.Flags().Lookup("type") == nil {
		return f, nil
	}
	types, _ := cmd.Flags().GetString("type")
	for _, s := range splitList(types) {
		t, err := model.ParseEventType(s)
		if err != nil {
			return f, err
		}
		f.Types = append(f.Types, t)
	}
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		t, err := parseTime(s, a.now())
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		t, err := parseTime(s, a.now())
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	return f, nil
}
