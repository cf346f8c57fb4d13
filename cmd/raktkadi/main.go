package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iurnickita/raktkadi/internal/auth"
	"github.com/iurnickita/raktkadi/internal/config"
	"github.com/iurnickita/raktkadi/internal/expiry"
	"github.com/iurnickita/raktkadi/internal/handler"
	"github.com/iurnickita/raktkadi/internal/logger"
	"github.com/iurnickita/raktkadi/internal/service"
	"github.com/iurnickita/raktkadi/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	auth := auth.NewAuth(cfg.Auth)
	service, err := service.NewService(cfg.Service, store)
	if err != nil {
		return err
	}
	sweeper := expiry.NewSweeper(cfg.Expiry, service, zaplog.Named("expiry"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return handler.Serve(ctx, cfg.Handler, auth, service, zaplog)
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	err = g.Wait()
	zaplog.Info("stopped", zap.Error(err))
	return err
}
