// cmd/cities/main.go

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ps-vitor/crous-notifier/internal/app"
	"github.com/ps-vitor/crous-notifier/internal/config"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding app.yaml and scraping.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, false)
	if err != nil {
		log.Fatalf("Error initializing: %v", err)
	}
	defer a.Close()

	cities, err := a.Listings.Cities(ctx)
	if err != nil {
		log.Fatalf("Error listing cities: %v", err)
	}

	jsonData, err := json.MarshalIndent(cities, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling to JSON: %v", err)
	}

	fmt.Println(string(jsonData))
}
