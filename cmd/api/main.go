package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/lameck-sudo/aviator-game/internal/config"
	"github.com/lameck-sudo/aviator-game/internal/server"
)

func gracefulShutdown(fiberServer *server.FiberServer, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fiberServer.ShutdownWithContext(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}
	if err := fiberServer.Close(); err != nil {
		log.Printf("Error releasing backends: %v", err)
	}

	log.Println("Server exiting")
	done <- true
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[SERVER] Invalid configuration: %v", err)
	}

	ctx := context.Background()
	srv, err := server.New(ctx, cfg)
	if err != nil {
		log.Fatalf("[SERVER] Startup failed: %v", err)
	}
	srv.RegisterFiberRoutes()
	srv.Start(ctx)

	done := make(chan bool, 1)

	go func() {
		if err := srv.Listen(fmt.Sprintf(":%s", cfg.Port)); err != nil {
			panic(fmt.Sprintf("http server error: %s", err))
		}
	}()

	go gracefulShutdown(srv, done)

	<-done
	log.Println("Graceful shutdown complete.")
}
