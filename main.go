package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studylogbot/pkg/bot"
	"studylogbot/pkg/bot/telegramadapter"
	"studylogbot/pkg/config"
	"studylogbot/pkg/fsm"
	"studylogbot/pkg/server"
	"studylogbot/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Panicf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	if err := config.LoadFeatures(os.Getenv("FEATURES_FILE")); err != nil {
		log.Panicf("Failed to load features: %v", err)
	}

	gormStore, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Panicf("Failed to open database: %v", err)
	}
	if err := gormStore.Migrate(); err != nil {
		log.Panicf("Failed to migrate database: %v", err)
	}

	botClient, err := bot.NewClient(cfg.BotToken)
	if err != nil {
		log.Panicf("Failed to initialize bot client: %v", err)
	}
	log.Printf("Authorized on account %s", botClient.Self.UserName)

	botPort, err := telegramadapter.New(botClient, log.Default())
	if err != nil {
		log.Panicf("Failed to create telegram adapter: %v", err)
	}

	engine := fsm.New(gormStore, botPort, cfg, config.GetFeatures())
	srv := server.New(engine, cfg.WebhookPath)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Listening on %s (webhook path %s)...", cfg.ListenAddr, cfg.WebhookPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panicf("HTTP server failed: %v", err)
		}
	}()

	<-sigs
	log.Println("Shutdown signal received...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	log.Println("Server stopped.")
}
