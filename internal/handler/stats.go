package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/parse"
	"telegram-moderator-bot/internal/repository"
	"telegram-moderator-bot/internal/service"
)

// StatsHandler renders usage reports from the command history.
type StatsHandler struct {
	gate         *Gate
	statsService *service.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(gate *Gate, statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{gate: gate, statsService: statsService}
}

// HandleTopCommands handles /top_commands [Nd].
func (h *StatsHandler) HandleTopCommands(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		days, err := parse.Period(parse.Args(c.Text(), "top_commands"))
		if err != nil {
			return c.Reply("Usage: /top_commands [Nd]")
		}

		entries, err := h.statsService.TopCommands(ctx, window(days))
		if err != nil {
			log.Error().Err(err).Msg("failed to aggregate commands")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatReport(fmt.Sprintf("📊 Top commands, last %dd", days), entries, "uses"))
	})
}

// HandleTopUsers handles /top_users [Nd].
func (h *StatsHandler) HandleTopUsers(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		days, err := parse.Period(parse.Args(c.Text(), "top_users"))
		if err != nil {
			return c.Reply("Usage: /top_users [Nd]")
		}

		entries, err := h.statsService.TopUsers(ctx, window(days))
		if err != nil {
			log.Error().Err(err).Msg("failed to aggregate users")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatReport(fmt.Sprintf("📊 Most active users, last %dd", days), entries, "commands"))
	})
}

// HandleTopUsersForCommand handles /top_users_handler /cmd [Nd].
func (h *StatsHandler) HandleTopUsersForCommand(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		args := strings.Fields(parse.Args(c.Text(), "top_users_handler"))
		if len(args) == 0 || !strings.HasPrefix(args[0], "/") {
			return c.Reply("Usage: /top_users_handler /command [Nd]")
		}
		command := args[0]

		period := ""
		if len(args) > 1 {
			period = args[1]
		}
		days, err := parse.Period(period)
		if err != nil {
			return c.Reply("Usage: /top_users_handler /command [Nd]")
		}

		entries, err := h.statsService.TopUsersForCommand(ctx, command, window(days))
		if err != nil {
			log.Error().Err(err).Str("command", command).Msg("failed to aggregate command users")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatReport(fmt.Sprintf("📊 Top callers of %s, last %dd", command, days), entries, "uses"))
	})
}

// HandleTopWinners handles /top_winners [Nd].
func (h *StatsHandler) HandleTopWinners(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		days, err := parse.Period(parse.Args(c.Text(), "top_winners"))
		if err != nil {
			return c.Reply("Usage: /top_winners [Nd]")
		}

		entries, err := h.statsService.TopWinners(ctx, window(days))
		if err != nil {
			log.Error().Err(err).Msg("failed to aggregate winners")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatReport(fmt.Sprintf("🎰 Top winners, last %dd", days), entries, "credits"))
	})
}

func window(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func formatReport(title string, entries []repository.CountEntry, unit string) string {
	if len(entries) == 0 {
		return "No activity in that period."
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s — %d %s\n", i+1, e.Label, e.Count, unit)
	}
	return strings.TrimRight(b.String(), "\n")
}
