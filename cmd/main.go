package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nzyazin/ledger/internal/core/logger"
	"github.com/Nzyazin/ledger/internal/server"
	"github.com/Nzyazin/ledger/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig("config.env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	log, cleanup := logger.NewLogger(cfg.LogDir)
	defer cleanup()

	srv, err := server.NewServer(cfg, log)
	if err != nil {
		log.Error("Failed to create server", logger.ErrorField("error", err))
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DB.ConnectTimeout)
	err = srv.VerifyConnectivity(ctx)
	cancel()
	if err != nil {
		log.Error("Database is not ready", logger.ErrorField("error", err))
		shutdown(srv, log)
		return 1
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", logger.StringField("addr", cfg.HTTP.Addr))
		if err := srv.Run(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	code := 0
	select {
	case <-quit:
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", logger.ErrorField("error", err))
		code = 1
	}

	if err := shutdown(srv, log); err != nil {
		return 1
	}

	log.Info("Server exited properly")
	return code
}

func shutdown(srv *server.Server, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", logger.ErrorField("error", err))
		return err
	}
	return nil
}
