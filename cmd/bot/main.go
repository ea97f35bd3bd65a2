// Package main is the entry point for the bingo/roulette bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-bingo-bot/internal/bot"
	"telegram-bingo-bot/internal/config"
	"telegram-bingo-bot/internal/game/session"
	"telegram-bingo-bot/internal/pkg/db"
	"telegram-bingo-bot/internal/repository"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	privilegeRepo := repository.NewPrivilegeRepository(dbPool.Pool)

	store := session.NewStore(privilegeRepo)
	if err := loadPrivileges(ctx, privilegeRepo, store); err != nil {
		log.Fatal().Err(err).Msg("Failed to load privileges")
	}

	telegramBot, err := bot.New(&bot.Dependencies{
		Config: cfg,
		Store:  store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()

	// Best-effort final save; durable state may lag in-memory state on a
	// hard kill, which the design accepts.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	if err := store.SaveNow(saveCtx); err != nil {
		log.Warn().Err(err).Msg("Final save failed")
	}

	log.Info().Msg("Bot stopped gracefully")
}

// loadPrivileges reconstructs the durable part of the session from the
// database.
func loadPrivileges(ctx context.Context, repo *repository.PrivilegeRepository, store *session.Store) error {
	vips, err := repo.LoadVIPs(ctx)
	if err != nil {
		return err
	}
	bonuses, err := repo.LoadBonuses(ctx)
	if err != nil {
		return err
	}

	store.Load(vips, bonuses)
	log.Info().
		Int("vip_count", len(vips)).
		Int("bonus_count", len(bonuses)).
		Msg("Privileges loaded")

	return nil
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS vip_users (
			user_id BIGINT PRIMARY KEY,
			username TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: vip_users table created")

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bonus_users (
			user_id BIGINT PRIMARY KEY,
			bonus_count INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: bonus_users table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
