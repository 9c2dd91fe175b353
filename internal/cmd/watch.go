package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/karmanspace/tracker/internal/watch"
)

func registerWatchCmd(parent *cobra.Command, env *environment) {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the request forest live",
		Long: `Show the request forest full-screen and redraw it whenever it changes.

With the file backend the view follows writes from other tracker processes
as they happen. Other backends are polled at --interval.

Keys: q quit, r reload, / search, esc clear search, arrows scroll.`,
		Args: cobra.NoArgs,
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			opts := []watch.ModelOption{watch.WithPollInterval(interval)}
			if a.opened.Dir != "" {
				w, err := watch.New(a.opened.Dir, a.logger)
				if err != nil {
					return err
				}
				w.Start()
				defer w.Stop()
				opts = append(opts, watch.WithChanges(w.Changes()))
			}
			return watch.Run(cmd.Context(), a.trk, opts...)
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", watch.DefaultPollInterval, "poll interval for backends that cannot be watched")
	parent.AddCommand(cmd)
}
