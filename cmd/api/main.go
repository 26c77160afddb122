package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fundgate-backend/internal/config"
	"fundgate-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}
	app, res, err := router.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}

	// Verify connections before printing startup logs
	sqlDB, err := res.DB.DB()
	if err != nil {
		panic("Postgres: get DB: " + err.Error())
	}
	if err := sqlDB.Ping(); err != nil {
		panic("Postgres connection failed: " + err.Error())
	}
	fmt.Println("Postgres connected")
	if err := res.Rdb.Ping(context.Background()).Err(); err != nil {
		panic("Redis connection failed: " + err.Error())
	}
	fmt.Println("Redis connected")
	fmt.Printf("Server running at http://localhost:%s\n", cfg.Port)
	fmt.Printf("Health check: http://localhost:%s/health/json\n", cfg.Port)
	fmt.Println("---")

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	// drains queued audit events before exit
	if err := res.Close(ctx); err != nil {
		log.Error().Err(err).Msg("closing resources")
	}
}
