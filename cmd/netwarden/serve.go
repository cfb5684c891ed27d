package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/netwarden/internal/event"
	"github.com/HerbHall/netwarden/internal/pulse"
	"github.com/HerbHall/netwarden/internal/server"
	"github.com/HerbHall/netwarden/internal/version"
	"github.com/HerbHall/netwarden/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the monitoring scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	logger.Info("netwarden server starting", zap.String("version", version.Short()))

	bus := event.NewBus(logger.Named("event"))
	if url := a.cfg.Events.NATSURL; url != "" {
		nc, err := event.ConnectNATS(url, logger.Named("nats"))
		if err != nil {
			logger.Warn("nats unavailable, events stay in-process", zap.String("url", url), zap.Error(err))
		} else {
			defer nc.Drain() //nolint:errcheck // best effort on shutdown
			detach := event.NewForwarder(nc, a.cfg.Events.SubjectPrefix, logger.Named("nats")).Attach(bus)
			defer detach()
			logger.Info("forwarding events to nats", zap.String("url", url))
		}
	}

	sched := a.scheduler(bus)

	var origins []string
	if o := a.cfg.Server.CORSOrigin; o != "" && o != "*" {
		origins = []string{o}
	}
	wsHandler := ws.NewHandler(bus, origins, logger.Named("ws"))
	defer wsHandler.Close()

	api := pulse.NewAPI(sched, a.inventory, a.journal, logger.Named("api"))
	addr := a.cfg.Server.Addr()
	srv := server.New(addr, logger, server.Options{
		Ready:      a.db.Ping,
		CORSOrigin: a.cfg.Server.CORSOrigin,
		DevMode:    a.cfg.Server.DevMode,
	}, api, wsHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sched.Start(ctx)
	logger.Info("netwarden server ready",
		zap.String("addr", addr),
		zap.Duration("interval", a.cfg.Pulse.Interval),
	)
	fmt.Fprintf(os.Stderr, "\n  netwarden %s is ready!\n  API listening on http://%s\n\n", version.Short(), addr)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			sched.Stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("netwarden server stopped")
	return nil
}
