package service

import (
	"context"
	"time"

	"telegram-moderator-bot/internal/repository"
)

// DefaultStatsWindow is the trailing aggregation window used when the
// caller names none.
const DefaultStatsWindow = 30 * 24 * time.Hour

// StatsTop is how many rows the usage reports include.
const StatsTop = 5

// StatsService aggregates the command history into usage reports.
type StatsService struct {
	historyRepo *repository.HistoryRepository
	casinoRepo  *repository.CasinoRepository
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(
	historyRepo *repository.HistoryRepository,
	casinoRepo *repository.CasinoRepository,
) *StatsService {
	return &StatsService{
		historyRepo: historyRepo,
		casinoRepo:  casinoRepo,
	}
}

// TopCommands reports the most used commands over the trailing window.
func (s *StatsService) TopCommands(ctx context.Context, window time.Duration) ([]repository.CountEntry, error) {
	return s.historyRepo.TopCommands(ctx, s.since(window), StatsTop)
}

// TopUsers reports the most active users over the trailing window.
func (s *StatsService) TopUsers(ctx context.Context, window time.Duration) ([]repository.CountEntry, error) {
	return s.historyRepo.TopUsers(ctx, s.since(window), StatsTop)
}

// TopUsersForCommand reports who ran one command most over the trailing
// window.
func (s *StatsService) TopUsersForCommand(ctx context.Context, command string, window time.Duration) ([]repository.CountEntry, error) {
	return s.historyRepo.TopUsersForCommand(ctx, command, s.since(window), StatsTop)
}

// TopWinners reports the biggest casino winners over the trailing
// window.
func (s *StatsService) TopWinners(ctx context.Context, window time.Duration) ([]repository.CountEntry, error) {
	return s.casinoRepo.TopWinners(ctx, s.since(window), StatsTop)
}

func (s *StatsService) since(window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultStatsWindow
	}
	return time.Now().Add(-window)
}
