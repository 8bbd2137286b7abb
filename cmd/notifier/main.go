// cmd/notifier/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ps-vitor/crous-notifier/internal/app"
	"github.com/ps-vitor/crous-notifier/internal/config"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding app.yaml and scraping.yaml")
	once := flag.Bool("once", false, "run a single check and exit")
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

	if *once {
		if _, err := a.Pipeline.CheckAndNotify(ctx); err != nil {
			a.Log.Error("Check failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	a.State.SetRunning(true)
	a.Scheduler.Run(ctx, cfg.CheckInterval())
	a.State.SetRunning(false)
}
