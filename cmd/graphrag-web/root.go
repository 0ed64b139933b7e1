package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/graphrag-web/internal/adapters/graphrag"
	"github.com/0xcro3dile/graphrag-web/internal/adapters/history"
	"github.com/0xcro3dile/graphrag-web/internal/adapters/registry"
	"github.com/0xcro3dile/graphrag-web/internal/config"
	"github.com/0xcro3dile/graphrag-web/internal/domain/ports"
	"github.com/0xcro3dile/graphrag-web/internal/domain/usecases"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *registry.ListingRegistry
	history  *history.SQLiteStore // nil when disabled
	ask      *usecases.AskUseCase
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "graphrag-web",
		Short: "Ask questions against pre-built GraphRAG datasets",
		Long: `graphrag-web lists the datasets described in <data root>/listing.json,
takes a question through a web form and answers it by running
"graphrag query" against the chosen dataset.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	load := func(cmd *cobra.Command) (*app, error) {
		return newApp(configPath, cmd.ErrOrStderr())
	}

	serve := newServeCmd(load)
	root.AddCommand(serve, newDatasetsCmd(load), newAskCmd(load), newHistoryCmd(load))

	// Running the bare command serves the UI.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

// newApp loads config and wires the adapters into the use case.
func newApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry.NewListingRegistryAt(cfg.ListingPath(), logger),
	}

	invoker := graphrag.NewCLIInvoker(cfg.GraphRAG.Executable, cfg.GraphRAG.Args, logger).
		WithEnv(cfg.GraphRAG.Env...)

	var store ports.HistoryStore
	if cfg.HistoryDB != "" {
		a.history, err = history.NewSQLiteStore(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		store = a.history
	}

	a.ask = usecases.NewAskUseCase(a.registry, invoker, store, cfg.DataRoot, cfg.QueryTimeout(), logger)
	return a, nil
}

// Close releases the history database.
func (a *app) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

