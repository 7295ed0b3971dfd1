package handler

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/config"
	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/parse"
)

// FunHandler handles the engagement commands.
type FunHandler struct {
	cfg  *config.Config
	gate *Gate
}

// NewFunHandler creates a new FunHandler.
func NewFunHandler(cfg *config.Config, gate *Gate) *FunHandler {
	return &FunHandler{cfg: cfg, gate: gate}
}

// HandleRandomNumber handles /random_number <n>, drawing 1..n after a
// random sticker from the configured set.
func (h *FunHandler) HandleRandomNumber(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		arg := parse.Args(c.Text(), "random_number")
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return c.Reply("Usage: /random_number <n>")
		}

		if ids := h.cfg.Stickers.RandomNumber; len(ids) > 0 {
			sticker := &tele.Sticker{File: tele.File{FileID: ids[rand.Intn(len(ids))]}}
			if _, err := c.Bot().Send(c.Chat(), sticker); err != nil {
				log.Debug().Err(err).Msg("failed to send sticker")
			}
		}

		drawn := rand.Intn(n) + 1
		return c.Reply(fmt.Sprintf("🎲 %s drew %d (1..%d)", parse.Mention(member.Username), drawn, n))
	})
}

// HandleRandomChoice handles /random_choice a / b / c.
func (h *FunHandler) HandleRandomChoice(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		raw := parse.Args(c.Text(), "random_choice")
		var options []string
		for _, part := range strings.Split(raw, "/") {
			if part = strings.TrimSpace(part); part != "" {
				options = append(options, part)
			}
		}
		if len(options) < 2 {
			return c.Reply("Usage: /random_choice option one / option two / ...")
		}

		chosen := options[rand.Intn(len(options))]
		return c.Reply(fmt.Sprintf("🎯 %s, the pick is: %s", parse.Mention(member.Username), chosen))
	})
}
