package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/parse"
	"telegram-moderator-bot/internal/repository"
	"telegram-moderator-bot/internal/service"
)

// AdminHandler handles command catalogue maintenance and manual
// ledger operations.
type AdminHandler struct {
	gate           *Gate
	commandService *service.CommandService
	ledgerService  *service.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	gate *Gate,
	commandService *service.CommandService,
	ledgerService *service.LedgerService,
) *AdminHandler {
	return &AdminHandler{
		gate:           gate,
		commandService: commandService,
		ledgerService:  ledgerService,
	}
}

// HandleEditHandler handles /edit_handler /command <column> value,
// updating one presentation column of a command.
func (h *AdminHandler) HandleEditHandler(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		usage := fmt.Sprintf("Usage: /edit_handler /command <%s> value",
			strings.Join(repository.EditableCommandColumns, "|"))

		args := strings.SplitN(parse.Args(c.Text(), "edit_handler"), " ", 3)
		if len(args) < 3 || !strings.HasPrefix(args[0], "/") {
			return c.Reply(usage)
		}
		command, column, value := args[0], args[1], strings.TrimSpace(args[2])

		err := h.commandService.EditCommand(ctx, command, column, value)
		switch {
		case errors.Is(err, repository.ErrCommandNotFound):
			return c.Reply(fmt.Sprintf("Command %s is not registered.", command))
		case errors.Is(err, repository.ErrInvalidColumn):
			return c.Reply(usage)
		case err != nil:
			log.Error().Err(err).Str("command", command).Msg("failed to edit command")
			return c.Reply(msgFailed)
		}
		return c.Reply(fmt.Sprintf("✅ %s of %s updated.", column, command))
	})
}

// HandleReplenish handles /replenish, running the low-balance top-up
// outside its weekly schedule.
func (h *AdminHandler) HandleReplenish(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		restored, err := h.ledgerService.ReplenishLowBalances(ctx)
		if err != nil {
			log.Error().Err(err).Msg("manual replenishment failed")
			return c.Reply(msgFailed)
		}
		return c.Reply(fmt.Sprintf("✅ Replenished %d balances.", restored))
	})
}
