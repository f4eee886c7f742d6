package cli

import (
	"fmt"

	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an event",
		Long:  "Edit an event. Metadata flags and --meta keys are merged onto the stored details; changing the type without metadata resets it to the new type's defaults.",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().String("type", "", "New event type")
	cmd.Flags().String("at", "", "New start time")
	cmd.Flags().String("end", "", "New end time")
	cmd.Flags().Bool("clear-end", false, "Remove the end time")
	cmd.Flags().String("by", "", "Set created-by")
	addMetadataFlags(cmd.Flags())

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	current, err := a.events.Get(args[0])
	if err != nil {
		exitErr("update", err)
	}

	var p events.Patch
	typ := current.Type
	if s, _ := cmd.Flags().GetString("type"); s != "" {
		if typ, err = model.ParseEventType(s); err != nil {
			exitErr("update", err)
		}
		p.Type = &typ
	}
	// Field flags edit the stored metadata; a type change starts from scratch.
	var base model.Metadata
	if typ == current.Type {
		base = current.Metadata
	}
	if p.Metadata, err = metadataFromFlags(cmd.Flags(), typ, base); err != nil {
		exitErr("update", err)
	}
	if s, _ := cmd.Flags().GetString("at"); s != "" {
		t, err := parseTime(s, a.now())
		if err != nil {
			exitErr("update", err)
		}
		p.StartTime = &t
	}
	if s, _ := cmd.Flags().GetString("end"); s != "" {
		t, err := parseTime(s, a.now())
		if err != nil {
			exitErr("update", err)
		}
		p.EndTime = &t
	}
	p.ClearEndTime, _ = cmd.Flags().GetBool("clear-end")
	if cmd.Flags().Changed("by") {
		by, _ := cmd.Flags().GetString("by")
		p.CreatedBy = &by
	}

	e, err := a.events.UpdateEvent(cmd.Context(), args[0], p)
	if err != nil {
		exitErr("update", err)
	}

	if textOutput() {
		fmt.Println(formatEvent(e, a.loc))
		return
	}
	printJSON(e)
}
