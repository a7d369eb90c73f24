// Package main runs the fincore service: ledger, rates, journal,
// pipeline executor and scheduler assembled from configuration.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantfabric/fincore/internal/app/runtime"
	"github.com/quantfabric/fincore/internal/config"
)

func main() {
	cfgPath := flag.String("config", "", "path to configuration file (default: $FINCORE_CONFIG, then config/fincore.yaml)")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *cfgPath != "" {
		loaded, err := config.LoadFromPath(*cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	app, err := runtime.NewApplicationFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to assemble application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	// Wait for shutdown signal or a runtime failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down...", sig)
		cancel()
		if err := <-errCh; err != nil {
			log.Printf("Run error: %v", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Printf("Run error: %v", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Service stopped")
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[fincore] ")
}
