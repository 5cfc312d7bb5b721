package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mboa/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load environment (a missing .env falls back to the process env).
// 2) Build app wiring.
// 3) Run schedulers (status expiry reaper) until SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load()
	log.Println("mboa worker starting")

	app, err := bootstrap.BuildWorker()
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("mboa worker stopped with error: %v", err)
	}
}
