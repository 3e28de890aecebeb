package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/duet/internal/adapter/driven/persistence/gormstore"
	handler "github.com/avolkov/duet/internal/adapter/driving/http"
	"github.com/avolkov/duet/internal/config"
	"github.com/avolkov/duet/internal/core/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	log.Logger = l

	cfg := config.Load()

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to connect database")
	}

	store := gormstore.New(db)
	if err := store.Migrate(); err != nil {
		l.Fatal().Err(err).Msg("Failed to migrate database")
	}

	registry := service.NewRegistry()
	presence := service.NewPresenceService(registry, store)
	chat := service.NewChatService(registry, store)
	calls := service.NewCallService(registry)

	h := handler.NewHandler(registry, presence, chat, calls, store, cfg.JWTSecret)
	h.WSInsecureSkipVerify = cfg.WSInsecureSkipVerify

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain in-flight persistence writes before exiting.
	chat.Flush()
	presence.Flush()
	l.Info().Msg("Server exited")
}
