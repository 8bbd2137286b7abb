// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/app"
	"github.com/ps-vitor/crous-notifier/internal/config"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding app.yaml and scraping.yaml")
	autostart := flag.Bool("autostart", true, "start the polling loop with the server")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		log.Fatalf("Error initializing notifier: %v", err)
	}
	defer a.Close()
	defer a.Log.Sync()

	if *autostart {
		if err := a.Scheduler.Start(cfg.CheckInterval()); err != nil {
			a.Log.Fatal("Could not start scheduler", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Web.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.Log.Info("Server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Log.Error("Server shutdown failed", zap.Error(err))
	}
	_ = a.Scheduler.Stop()
	a.Scheduler.Wait()
}
