package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/server"
	"github.com/hyperjump/papersim/internal/watcher"
)

func (a *app) serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API and the inbox watcher",
		Args:  cobra.NoArgs,
		RunE:  a.runServer,
	}
}

func (a *app) runServer(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	saver := newVectorSaver(components.Indexer, cfg.Storage.VectorIndexPath, 2*time.Second, logger)
	opts := []server.Option{server.WithChangeHook(saver.Changed)}

	if len(cfg.Watch.Directories) > 0 {
		inbox := watcher.NewInbox(components.Indexer, cfg.Watch, saver.Changed, watcher.WithLogger(logger))
		if err := inbox.Start(ctx); err != nil {
			return err
		}
		defer inbox.Stop()
		go inbox.SyncExistingFiles()
		opts = append(opts, server.WithWatch(inbox))
	}

	srv := server.NewServer(components.Engine, components.Indexer, components.Extractor, components.Storage, cfg, logger, opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = srv.Stop(shutdownCtx)
	}
	if saveErr := saver.Flush(); saveErr != nil {
		logger.Warn("final vector index save failed", zap.Error(saveErr))
	}
	return err
}
