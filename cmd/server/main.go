package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"photocurator/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
