package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/service"
)

// HelpHandler renders the command listings.
type HelpHandler struct {
	gate           *Gate
	commandService *service.CommandService
}

// NewHelpHandler creates a new HelpHandler.
func NewHelpHandler(gate *Gate, commandService *service.CommandService) *HelpHandler {
	return &HelpHandler{gate: gate, commandService: commandService}
}

// HandleHelp handles /help: the non-admin commands granted to the
// caller's role, with their presentation metadata.
func (h *HelpHandler) HandleHelp(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		commands, err := h.commandService.HelpForRole(ctx, *member.RoleID)
		if err != nil {
			log.Error().Err(err).Str("username", member.Username).Msg("failed to list help commands")
			return c.Reply(msgFailed)
		}
		if len(commands) == 0 {
			return c.Reply("Your role has no commands yet.")
		}

		var b strings.Builder
		b.WriteString("📖 <b>Your commands</b>\n\n")
		for _, cmd := range commands {
			writeCommandHelp(&b, cmd)
		}
		return c.Reply(b.String(), tele.ModeHTML)
	})
}

// HandleHelpAdmin handles /help_admin: every admin command plus the
// role level listing.
func (h *HelpHandler) HandleHelpAdmin(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		commands, err := h.commandService.AdminCommands(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list admin commands")
			return c.Reply(msgFailed)
		}
		roles, err := h.commandService.Roles(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list roles")
			return c.Reply(msgFailed)
		}

		var b strings.Builder
		b.WriteString("🛠 <b>Admin commands</b>\n\n")
		for _, cmd := range commands {
			writeCommandHelp(&b, cmd)
		}
		if len(roles) > 0 {
			b.WriteString("\n🎭 <b>Roles</b>\n")
			for _, role := range roles {
				fmt.Fprintf(&b, "• %s — level %d\n", role.Name, role.Level)
			}
		}
		return c.Reply(b.String(), tele.ModeHTML)
	})
}

// writeCommandHelp renders one command entry, skipping unset metadata.
func writeCommandHelp(b *strings.Builder, cmd *model.Command) {
	if cmd.Emoji != nil {
		fmt.Fprintf(b, "%s ", *cmd.Emoji)
	}
	fmt.Fprintf(b, "<b>%s</b>", cmd.Name)
	if cmd.Description != nil {
		fmt.Fprintf(b, " — %s", *cmd.Description)
	}
	b.WriteString("\n")
	if cmd.Parameters != nil {
		fmt.Fprintf(b, "  Parameters: %s\n", *cmd.Parameters)
	}
	if cmd.Example != nil {
		fmt.Fprintf(b, "  Example: <code>%s</code>\n", *cmd.Example)
	}
	if cmd.Note != nil {
		fmt.Fprintf(b, "  Note: %s\n", *cmd.Note)
	}
	b.WriteString("\n")
}
