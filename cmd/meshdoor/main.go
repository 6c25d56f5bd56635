package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"meshdoor/internal/commands/fortune"
	"meshdoor/internal/commands/mail"
	"meshdoor/internal/commands/ping"
	"meshdoor/internal/conf"
	"meshdoor/internal/door"
	"meshdoor/internal/mesh"
)

func main() {
	listen := flag.String("listen", "", "bridge listen address (overrides config)")
	dataDir := flag.String("data", "", "data directory (overrides config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := conf.LoadConfig()
	if err != nil {
		log.Printf("No config file found, using defaults: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	bridge := mesh.NewBridge(cfg.Listen, mesh.NodeInfo{
		ID:        cfg.NodeID,
		LongName:  cfg.LongName,
		ShortName: cfg.ShortName,
	})

	mgr := door.NewManager(bridge)
	if err := mgr.AddCommands(mail.New(cfg), ping.New(), fortune.New()); err != nil {
		log.Fatalf("Failed to register commands: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bridge.Listen(ctx)
	})
	g.Go(func() error {
		return mgr.Run(ctx, bridge.Messages(), time.Duration(cfg.PeriodicSeconds)*time.Second)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("meshdoor exited: %v", err)
	}
	log.Println("meshdoor stopped")
}
