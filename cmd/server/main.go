package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apipanel/config"
	"apipanel/internal/centralcash"
	"apipanel/internal/database"
	"apipanel/internal/events"
	"apipanel/internal/ledger"
	"apipanel/internal/referral"
	"apipanel/internal/router"
	"apipanel/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var store storage.Store
	switch cfg.Storage.Driver {
	case "memory":
		log.Printf("[main] using in-memory storage (data is lost on restart)")
		store = storage.NewMemoryStore()
	default:
		db, err := database.NewDB(&cfg.Database)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		store = storage.NewGormStore(db)
	}

	local := events.NewLocalBus()
	var bus events.Bus = local
	if cfg.Redis.Enabled {
		rdb := events.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[main] redis unreachable, events stay in-process: %v", err)
		} else {
			bus = events.NewRedisBus(rdb, local)
		}
	}

	bal := ledger.New(store, bus)
	cash := centralcash.New(store)
	configClient := referral.NewConfigClient(cfg.Referral.ConfigURL, cfg.Referral.FetchTimeout, store)
	engine := referral.New(store, bal, cash, configClient, bus, cfg.Referral.DeviceCheckEnabled)

	r := router.Setup(cfg, bal, cash, engine, bus)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	log.Println("server stopped")
}
