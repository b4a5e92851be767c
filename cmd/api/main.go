package main

import (
	"log"

	"github.com/astc-project/astc-backend/config"
	"github.com/astc-project/astc-backend/internal/bootstrap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app, err := bootstrap.BuildApp(cfg)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer app.Close()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:      "astc-backend",
		Version:          cfg.App.Version,
		Environment:      cfg.App.Environment,
		ExecuteRateLimit: cfg.Server.ExecuteRateLimit,
		ExecuteRateBurst: cfg.Server.ExecuteRateBurst,
		App:              app,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
