package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/format"
	"github.com/JakeFAU/crawl-console/internal/jobs"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the job stream and print the overview counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := mustApp(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = a.Stream().Run(ctx)
			}()
			watchStore(ctx, a.Store(), interval, cmd.OutOrStdout())
			<-done
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "how often to check for changes")
	return cmd
}

// watchStore prints one overview line per store version change until ctx ends.
func watchStore(ctx context.Context, store *jobs.Store, interval time.Duration, out io.Writer) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seen uint64
	for {
		if v := store.Version(); v != seen {
			seen = v
			fmt.Fprintln(out, overviewLine(store.Aggregates()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func overviewLine(agg jobs.Aggregates) string {
	return fmt.Sprintf("%s  running %d  paused %d  stopped %d  pages %s",
		format.Plural(agg.Jobs, "job", "jobs"), agg.Running, agg.Paused, agg.Stopped, format.Count(agg.TotalPages))
}
