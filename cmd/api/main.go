package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mboa/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load environment (a missing .env falls back to the process env).
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM, then drain in-flight requests.
func main() {
	_ = godotenv.Load()
	log.Println("mboa api starting")

	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Printf("api shutdown failed: %v", err)
		}
		cancel()
		runErr = <-errCh
	}

	if err := app.Close(); err != nil {
		log.Printf("api shutdown close failed: %v", err)
	}
	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		log.Fatalf("mboa api stopped with error: %v", runErr)
	}
}
