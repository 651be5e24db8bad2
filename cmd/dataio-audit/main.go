package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mxm-platform/dataio/api"
	"github.com/mxm-platform/dataio/config"
	"github.com/mxm-platform/dataio/logging"
	"github.com/mxm-platform/dataio/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dataio-audit: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{Level: cfg.LogLevel})

	logger.Info().
		Int("http_port", cfg.HTTPPort).
		Str("db_path", cfg.DBPath).
		Str("responses_root", cfg.ResponsesRoot).
		Msg("starting dataio audit server")

	st, err := store.Open(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening store")
	}
	defer st.Close()

	h := api.NewHandler(st, logger)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	h.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("starting server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("stopped")
}
