package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sul-dlss/mais-person-client/watch"
)

type watchOptions struct {
	schedule    string
	once        bool
	metricsAddr string
}

func newWatchCmd(app *App) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch [sunetid...]",
		Short: "Re-check people on a schedule and report role, org or end date changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runWatch(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "cron schedule (default from config)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "take one snapshot and exit")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func (a *App) runWatch(ctx context.Context, opts watchOptions, args []string) error {
	ids := args
	if len(ids) == 0 {
		ids = a.cfg.Watch.SunetIDs
	}
	if len(ids) == 0 {
		return usageErrorf("watch needs sunetids as arguments or watch.sunetids in the config")
	}

	schedule := opts.schedule
	if schedule == "" {
		schedule = a.cfg.Watch.Schedule
	}

	w := watch.New(a.client, ids, watch.Options{
		Schedule:    schedule,
		Concurrency: a.cfg.MAIS.Concurrency,
		Metrics:     a.metrics,
		OnChange: func(c watch.Change) {
			fmt.Fprintln(a.Out, c.String())
		},
	})

	if _, err := w.Check(ctx); err != nil {
		return err
	}
	if opts.once {
		return writeJSON(a.Out, w.Snapshots())
	}

	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	<-ctx.Done()
	return nil
}
