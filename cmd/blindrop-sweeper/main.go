package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blindrop/blindrop/core/infra/blobstore"
	"github.com/blindrop/blindrop/core/infra/buildinfo"
	"github.com/blindrop/blindrop/core/infra/bus"
	"github.com/blindrop/blindrop/core/infra/config"
	"github.com/blindrop/blindrop/core/infra/expiryindex"
	infraMetrics "github.com/blindrop/blindrop/core/infra/metrics"
	"github.com/blindrop/blindrop/core/lifecycle"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep pass and exit")
	flag.Parse()

	log.Println("blindrop sweeper starting...")
	buildinfo.Log("blindrop-sweeper")

	cfg := config.Load()

	blobs, err := openBlobStore(cfg)
	if err != nil {
		log.Fatalf("failed to open blob store: %v", err)
	}
	defer blobs.Close()

	index, err := expiryindex.NewRedisIndex(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to Redis for expiry index: %v", err)
	}
	defer index.Close()

	var events lifecycle.Events
	if cfg.NatsURL != "" {
		natsBus, err := bus.NewNatsBus(cfg.NatsURL)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsBus.Close()
		events = natsBus
	}

	metrics := infraMetrics.NewProm("blindrop_sweeper")
	sweeper := lifecycle.NewSweeper(blobs, index, events, metrics)

	if *once {
		n, err := sweeper.SweepOnce(context.Background())
		if err != nil {
			log.Fatalf("sweep failed: %v", err)
		}
		log.Printf("sweep complete, reclaimed %d", n)
		return
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", infraMetrics.Handler())
		srv := &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		log.Printf("sweeper metrics on %s/metrics", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sweeper.Run(ctx, cfg.SweepInterval)
	log.Println("blindrop sweeper stopped")
}

func openBlobStore(cfg *config.Config) (lifecycle.SweepStore, error) {
	if cfg.BlobBackend == "bolt" {
		return blobstore.OpenBoltStore(cfg.BoltPath)
	}
	return blobstore.NewRedisStore(cfg.BlobRedisURL)
}
