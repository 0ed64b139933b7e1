package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/graphrag-web/internal/adapters/filewatcher"
	"github.com/0xcro3dile/graphrag-web/internal/adapters/session"
	"github.com/0xcro3dile/graphrag-web/internal/domain/ports"
	"github.com/0xcro3dile/graphrag-web/internal/infrastructure/http"
	"github.com/0xcro3dile/graphrag-web/internal/metrics"
)

// writeSlack is added to the query timeout so a timed-out run can still render its failure page.
const writeSlack = 30 * time.Second

func newServeCmd(load func(*cobra.Command) (*app, error)) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question form and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	if a.cfg.UsesDefaultSecret() {
		a.logger.Warn("using the development session secret, set SESSION_SECRET in production")
	}
	if a.cfg.QueryTimeout() == 0 {
		a.logger.Warn("graphrag queries have no timeout, a hung engine holds its request open")
	}

	m := metrics.New()
	datasets := a.ask.Datasets(ctx)
	m.Datasets.Set(float64(len(datasets)))
	a.logger.Info("datasets loaded", "count", len(datasets), "listing", a.registry.Path())

	if a.history != nil {
		if n, err := a.history.Count(ctx); err != nil {
			a.logger.Warn("counting history", "error", err)
		} else {
			a.logger.Info("history enabled", "db", a.cfg.HistoryDB, "entries", n)
		}
	}

	if a.cfg.WatchListing {
		if watcher, err := filewatcher.NewFSNotifyWatcher("", a.logger); err != nil {
			a.logger.Warn("listing watcher unavailable", "error", err)
		} else {
			a.watchListing(ctx, watcher, m)
		}
	}

	var writeTimeout time.Duration
	if t := a.cfg.QueryTimeout(); t > 0 {
		writeTimeout = t + writeSlack
	}

	server, err := http.NewServer(a.ask, session.NewCookieFlashStore(a.cfg.Secret), m, http.Options{
		Addr:         a.cfg.Addr,
		Methods:      a.cfg.Methods,
		WriteTimeout: writeTimeout,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	return server.Start(ctx)
}

// watchListing logs listing changes and keeps the dataset gauge current.
// The listing is read on every request anyway, so a failed watch only loses the gauge.
func (a *app) watchListing(ctx context.Context, watcher ports.ListingWatcher, m *metrics.Metrics) {
	events, err := watcher.Watch(ctx, a.cfg.DataRoot)
	if err != nil {
		a.logger.Warn("not watching listing", "dir", a.cfg.DataRoot, "error", err)
		watcher.Stop()
		return
	}

	go func() {
		defer watcher.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				m.ListingEvents.WithLabelValues(ev.Operation.String()).Inc()
				n := len(a.ask.Datasets(ctx))
				m.Datasets.Set(float64(n))
				a.logger.Info("listing changed", "operation", ev.Operation.String(), "datasets", n)
			}
		}
	}()
}
