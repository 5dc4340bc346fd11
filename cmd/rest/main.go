package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emoflow-be/internal/bootstrap"
	"emoflow-be/internal/config"
	"emoflow-be/internal/server"
	"emoflow-be/internal/tracer"
	"emoflow-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run with graceful shutdown: drain the memory worker before exit
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down: draining memory extraction queue...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.MemoryService.Shutdown(ctx); err != nil {
			log.Printf("Memory worker shutdown: %v", err)
		}
		if err := srv.GetApp().Shutdown(); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}
