package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcliao/babbly/internal/events"
	"github.com/rcliao/babbly/internal/insight"
	"github.com/rcliao/babbly/internal/scheduler"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the daily summary every evening",
		Long:  "Run in the foreground and print the daily summary on $BABBLY_DIGEST_SCHEDULE (default 21:00). Use --once to print it now.",
		Run:   runDigest,
	}

	cmd.Flags().Bool("once", false, "Print today's digest and exit")

	RootCmd.AddCommand(cmd)
}

func runDigest(cmd *cobra.Command, args []string) {
	a := openApp(cmd.Context())
	defer a.Close()

	once, _ := cmd.Flags().GetBool("once")
	if once {
		if err := writeDigest(os.Stdout, a.events, a.now()); err != nil {
			exitErr("digest", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(cfg.DigestSchedule, a.loc, a.log)
	s.SetDigestFunction(a.digestJob(os.Stdout))
	if err := s.Start(); err != nil {
		exitErr("digest", err)
	}
	fmt.Fprintf(os.Stderr, "next digest at %s\n", s.Next().Format(time.RFC1123))

	<-ctx.Done()
	s.Stop()
}

// digestJob returns the scheduled digest. Events are logged by other
// processes, so the snapshot is reloaded before every run.
func (a *app) digestJob(w io.Writer) scheduler.DigestFunc {
	return func(ctx context.Context, at time.Time) error {
		if err := a.events.Reload(ctx); err != nil {
			return fmt.Errorf("reload events: %w", err)
		}
		return writeDigest(w, a.events, at)
	}
}

// writeDigest prints the day's story, or the raw counts when too little was
// logged for a story.
func writeDigest(w io.Writer, store *events.Store, at time.Time) error {
	evs := store.Events()
	if st := insight.GenerateDailyStory(evs, at); st != nil {
		_, err := fmt.Fprintf(w, "%s (%s)\n%s\n", st.Title, at.Format("2006-01-02"), st.Body)
		return err
	}
	_, err := fmt.Fprintf(w, "Daily Summary (%s)\n%s\n", at.Format("2006-01-02"), formatStats(events.StatsFor(evs, at)))
	return err
}
