package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/inhouse-queue/internal/config"
	"github.com/DoyleJ11/inhouse-queue/internal/engine"
	"github.com/DoyleJ11/inhouse-queue/internal/httpapi"
	"github.com/DoyleJ11/inhouse-queue/internal/hub"
	"github.com/DoyleJ11/inhouse-queue/internal/identity"
	"github.com/DoyleJ11/inhouse-queue/internal/ledger"
	"github.com/DoyleJ11/inhouse-queue/internal/lobby"
	"github.com/DoyleJ11/inhouse-queue/internal/logging"
	"github.com/DoyleJ11/inhouse-queue/internal/store/filestore"
	"github.com/DoyleJ11/inhouse-queue/internal/store/memory"
	"github.com/DoyleJ11/inhouse-queue/internal/store/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := identity.NewDirectory()
	led := ledger.New(store, log)
	h := hub.NewHub(ctx, lobby.Config{
		Ledger: led,
		Names:  names,
		Rules:  engine.Rules{Delta: cfg.PointsDelta, StrictParity: cfg.StrictParity},
		Log:    log,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(h, led, names, log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.Int("delta", cfg.PointsDelta),
			zap.Bool("strict_parity", cfg.StrictParity))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg config.Config) (ledger.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.NewRecordStore(), func() {}, nil
	case config.DriverPostgres:
		s, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}
