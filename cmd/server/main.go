package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/arena-server/internal/config"
	"github.com/DoyleJ11/arena-server/internal/data"
	"github.com/DoyleJ11/arena-server/internal/discovery"
	"github.com/DoyleJ11/arena-server/internal/engine"
	"github.com/DoyleJ11/arena-server/internal/httpapi"
	"github.com/DoyleJ11/arena-server/internal/lobby"
	"github.com/DoyleJ11/arena-server/internal/logging"
	"github.com/DoyleJ11/arena-server/internal/notify"
	"github.com/DoyleJ11/arena-server/internal/persist"
	"github.com/DoyleJ11/arena-server/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	catalog, err := data.Load(cfg.Match.CatalogPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var (
		sinks   []lobby.MatchSink
		history httpapi.MatchHistory
		closers []func() error
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	if cfg.Database.DSN != "" {
		archive, err := persist.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		closers = append(closers, archive.Close)
		sinks = append(sinks, archive)
		history = archive
		g.Go(func() error { return archive.Run(ctx) })
	}
	if cfg.NATS.URL != "" {
		pub, err := notify.Connect(cfg.NATS, log)
		if err != nil {
			return err
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, pub)
	}

	reg := engine.NewRegistry(cfg.Rules(), catalog, nil)
	lb := lobby.New(ctx, reg, lobby.Options{
		TickEvery: cfg.Match.TickRate,
		Sinks:     sinks,
		Log:       log,
	})

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Lobby:   lb,
		Catalog: catalog,
		Matches: history,
		WS: ws.Options{
			OriginPatterns: cfg.Server.OriginPatterns,
			PingInterval:   cfg.Server.PingInterval,
			PingTimeout:    cfg.Server.PingTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			OutboxSize:     cfg.Server.OutboxSize,
			ReadLimit:      cfg.Server.ReadLimit,
		},
		Log: log,
	})
	srv := &http.Server{
		Addr:              cfg.Server.BindAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Consul.Addr != "" {
		deregister, err := discovery.Register(cfg.Consul, cfg.Server.BindAddress, log)
		if err != nil {
			// The server still works without discovery.
			log.Warn("consul registration failed", zap.Error(err))
		} else {
			closers = append(closers, deregister)
		}
	}

	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Stopping the lobby sends every websocket a going-away close.
		lb.Post(lobby.Shutdown{})
		<-lb.Done()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
