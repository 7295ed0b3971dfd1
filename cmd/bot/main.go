// Package main is the entry point for the Telegram moderation bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-moderator-bot/internal/bot"
	"telegram-moderator-bot/internal/config"
	"telegram-moderator-bot/internal/pkg/db"
	"telegram-moderator-bot/internal/pkg/lock"
	"telegram-moderator-bot/internal/repository"
	"telegram-moderator-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log.Info().Msg("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	// Repositories
	memberRepo := repository.NewMemberRepository(dbPool.Pool)
	teamRepo := repository.NewTeamRepository(dbPool.Pool)
	roleRepo := repository.NewRoleRepository(dbPool.Pool)
	commandRepo := repository.NewCommandRepository(dbPool.Pool)
	topicRepo := repository.NewTopicRepository(dbPool.Pool)
	historyRepo := repository.NewHistoryRepository(dbPool.Pool)
	casinoRepo := repository.NewCasinoRepository(dbPool.Pool)

	// Services
	wagerGuard := lock.NewGuard()
	provisionService := service.NewProvisionService(memberRepo, roleRepo)
	permissionService := service.NewPermissionService(commandRepo, roleRepo, topicRepo, historyRepo)
	teamService := service.NewTeamService(teamRepo, memberRepo, provisionService)
	roleService := service.NewRoleService(roleRepo, memberRepo, commandRepo)
	topicService := service.NewTopicService(topicRepo, commandRepo)
	commandService := service.NewCommandService(commandRepo, roleRepo)
	statsService := service.NewStatsService(historyRepo, casinoRepo)
	ledgerService := service.NewLedgerService(
		memberRepo,
		casinoRepo,
		wagerGuard,
		cfg.Donate.CreditsPerStar,
		cfg.Replenish.Floor,
		cfg.Replenish.Threshold,
	)

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:            cfg,
		CommandRepo:       commandRepo,
		ProvisionService:  provisionService,
		PermissionService: permissionService,
		TeamService:       teamService,
		RoleService:       roleService,
		TopicService:      topicService,
		CommandService:    commandService,
		LedgerService:     ledgerService,
		StatsService:      statsService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	if err := telegramBot.SeedCommands(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed command catalogue")
	}
	if err := telegramBot.PublishMenu(); err != nil {
		log.Warn().Err(err).Msg("failed to publish command menu")
	}

	// Weekly low-balance replenishment
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Replenish.Schedule, func() {
		restored, err := ledgerService.ReplenishLowBalances(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("scheduled replenishment failed")
			return
		}
		log.Info().Int64("restored", restored).Msg("scheduled replenishment finished")
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Replenish.Schedule).Msg("invalid replenishment schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	telegramBot.Stop()
	log.Info().Msg("bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("running database migrations")

	// Migration 1: roles and members
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS roles (
			id BIGSERIAL PRIMARY KEY,
			role_name VARCHAR(255) NOT NULL UNIQUE,
			level INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS members (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			telegram_id BIGINT,
			role_id BIGINT REFERENCES roles(id) ON DELETE SET NULL,
			balance BIGINT NOT NULL DEFAULT 5000 CHECK (balance >= 0)
		);
		CREATE INDEX IF NOT EXISTS idx_members_telegram_id ON members(telegram_id);
	`)
	if err != nil {
		return err
	}

	// Migration 2: teams and membership
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			team_name VARCHAR(255) NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS member_teams (
			team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			member_id BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			PRIMARY KEY (team_id, member_id)
		);
	`)
	if err != nil {
		return err
	}

	// Migration 3: commands, topics and their grant tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS commands (
			id BIGSERIAL PRIMARY KEY,
			command_name VARCHAR(255) NOT NULL UNIQUE,
			emoji VARCHAR(16),
			description TEXT,
			example TEXT,
			parameters TEXT,
			note TEXT,
			is_admin_command BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE TABLE IF NOT EXISTS topics (
			id BIGSERIAL PRIMARY KEY,
			topic_name VARCHAR(255) NOT NULL UNIQUE,
			description TEXT
		);
		CREATE TABLE IF NOT EXISTS role_commands (
			role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			command_id BIGINT NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
			PRIMARY KEY (role_id, command_id)
		);
		CREATE TABLE IF NOT EXISTS topic_commands (
			topic_id BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
			command_id BIGINT NOT NULL REFERENCES commands(id) ON DELETE CASCADE,
			PRIMARY KEY (topic_id, command_id)
		);
	`)
	if err != nil {
		return err
	}

	// Migration 4: audit log
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS command_history (
			id BIGSERIAL PRIMARY KEY,
			member_id BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			telegram_id BIGINT,
			username VARCHAR(255) NOT NULL,
			command TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_command_history_time ON command_history(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_command_history_member_time ON command_history(member_id, created_at DESC);
	`)
	if err != nil {
		return err
	}

	// Migration 5: casino log and payments
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS casino_wins (
			id BIGSERIAL PRIMARY KEY,
			member_id BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_casino_wins_time ON casino_wins(created_at DESC);
		CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			telegram_charge_id VARCHAR(255) NOT NULL UNIQUE,
			member_id BIGINT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
			stars BIGINT NOT NULL,
			credits BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	log.Info().Msg("all migrations completed")
	return nil
}
