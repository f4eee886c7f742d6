package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	types := make([]string, len(model.EventTypes))
	for i, t := range model.EventTypes {
		types[i] = string(t)
	}

	cmd := &cobra.Command{
		Use:   "log <type>",
		Short: "Log an event",
		Long: "Log an event of type " + strings.Join(types, ", ") + ".\n" +
			"Unset details get the defaults for the type (feed: breast, diaper: wet, sleep: crib/3, pump: both/electric).",
		Args:      cobra.ExactArgs(1),
		ValidArgs: types,
		Run:       runLog,
	}

	cmd.Flags().String("at", "", "Start time: RFC 3339, \"2006-01-02 15:04\", \"15:04\" or an offset like -30m (default now)")
	cmd.Flags().String("end", "", "End time, same formats as --at")
	addMetadataFlags(cmd.Flags())

	RootCmd.AddCommand(cmd)
}

func runLog(cmd *cobra.Command, args []string) {
	typ, err := model.ParseEventType(args[0])
	if err != nil {
		exitErr("log", err)
	}

	a := openApp(cmd.Context())
	defer a.Close()

	in := events.NewEvent{Type: typ}
	if in.Metadata, err = metadataFromFlags(cmd.Flags(), typ, nil); err != nil {
		exitErr("log", err)
	}
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		if in.StartTime, err = parseTime(at, a.now()); err != nil {
			exitErr("log", err)
		}
	}
	if end, _ := cmd.Flags().GetString("end"); end != "" {
		t, err := parseTime(end, a.now())
		if err != nil {
			exitErr("log", err)
		}
		in.EndTime = &t
	}

	e, err := a.events.AddEvent(cmd.Context(), in)
	if err != nil {
		exitErr("log", err)
	}

	if textOutput() {
		fmt.Println(formatEvent(e, a.loc))
		return
	}
	printJSON(e)
}
