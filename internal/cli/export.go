package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rcliao/babbly/internal/export"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:       "export <csv|json|summary>",
		Short:     "Export the event log",
		Long:      "Export the event log as CSV, a JSON backup, or a plain-text visit summary.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"csv", "json", "summary"},
		Run:       runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	var w io.Writer = os.Stdout
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("export", err)
		}
		defer f.Close()
		w = f
	}

	evs := a.events.Events()
	var err error
	switch args[0] {
	case "csv":
		err = export.WriteCSV(w, evs, a.loc)
	case "json":
		err = export.WriteJSON(w, a.events.Profile(), evs, a.now())
	case "summary":
		err = export.WriteSummary(w, a.events.Profile(), evs, a.now(), a.loc)
	default:
		exitErr("export", fmt.Errorf("unknown format %q", args[0]))
	}
	if err != nil {
		exitErr("export", err)
	}
}
