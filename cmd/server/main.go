package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/serenitylabs/wellness_layer/internal/app/runtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("wellness-layer: %v", err)
	}
}

func run(ctx context.Context) error {
	app, err := runtime.NewApplication()
	if err != nil {
		return err
	}

	if err := app.Run(ctx); err != nil {
		return err
	}
	return app.Shutdown(context.Background())
}
