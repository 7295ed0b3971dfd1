package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/casino"
	"telegram-moderator-bot/internal/config"
	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/parse"
	"telegram-moderator-bot/internal/service"
)

// CasinoHandler handles wagers, balances and star donations.
type CasinoHandler struct {
	cfg           *config.Config
	gate          *Gate
	ledgerService *service.LedgerService
	provision     *service.ProvisionService
}

// NewCasinoHandler creates a new CasinoHandler.
func NewCasinoHandler(
	cfg *config.Config,
	gate *Gate,
	ledgerService *service.LedgerService,
	provision *service.ProvisionService,
) *CasinoHandler {
	return &CasinoHandler{
		cfg:           cfg,
		gate:          gate,
		ledgerService: ledgerService,
		provision:     provision,
	}
}

// HandleCasino handles /casino [stake].
func (h *CasinoHandler) HandleCasino(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		stake := h.cfg.Casino.DefaultBet
		if arg := parse.Args(c.Text(), "casino"); arg != "" {
			parsed, err := strconv.ParseInt(arg, 10, 64)
			if err != nil || parsed <= 0 {
				return c.Reply("Usage: /casino [stake]")
			}
			stake = parsed
		}

		roll := func(ctx context.Context) (int, error) {
			msg, err := c.Bot().Send(c.Chat(), tele.Slot)
			if err != nil {
				return 0, err
			}
			return msg.Dice.Value, nil
		}

		result, err := h.ledgerService.Wager(ctx, member, stake, roll)
		switch {
		case errors.Is(err, service.ErrWagerInProgress):
			return c.Reply("🎰 Easy, your previous spin is still rolling.")
		case errors.Is(err, service.ErrStakeBelowMinimum):
			return c.Reply(fmt.Sprintf("Minimum stake is %d credits.", casino.MinBet))
		case errors.Is(err, service.ErrInsufficientBalance):
			balance, balErr := h.ledgerService.GetBalance(ctx, member.ID)
			if balErr != nil {
				log.Error().Err(balErr).Str("username", member.Username).Msg("failed to read balance")
				return c.Reply(msgFailed)
			}
			return c.Reply(fmt.Sprintf("💸 Not enough credits: you have %d, the stake is %d.\nTop up with /donate.", balance, stake))
		case err != nil:
			log.Error().Err(err).Str("username", member.Username).Msg("wager failed")
			return c.Reply(msgFailed)
		}

		mention := parse.Mention(member.Username)
		reels := casino.ReelString(result.Outcome)
		if !result.Won {
			return c.Reply(fmt.Sprintf("%s 🎰 %s\n😢 Lost %d credits.\n💰 Balance: %d", mention, reels, stake, result.Balance))
		}
		return c.Reply(fmt.Sprintf("%s 🎰 %s\n🎊 ×%d! Won %d credits!\n💰 Balance: %d",
			mention, reels, result.Multiplier, result.Winnings, result.Balance))
	})
}

// HandleBalance handles /balance.
func (h *CasinoHandler) HandleBalance(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		balance, err := h.ledgerService.GetBalance(ctx, member.ID)
		if err != nil {
			log.Error().Err(err).Str("username", member.Username).Msg("failed to read balance")
			return c.Reply(msgFailed)
		}
		return c.Reply(fmt.Sprintf("💰 %s, your balance is %d credits.", parse.Mention(member.Username), balance))
	})
}

// HandleDonate handles /donate <stars>, sending a Telegram Stars
// invoice. Credits arrive through HandlePayment once the payment
// clears.
func (h *CasinoHandler) HandleDonate(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		arg := parse.Args(c.Text(), "donate")
		stars, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || stars <= 0 {
			return c.Reply("Usage: /donate <stars>")
		}

		credits := stars * h.cfg.Donate.CreditsPerStar
		invoice := &tele.Invoice{
			Title:       "Casino credits",
			Description: fmt.Sprintf("%d credits for %d ⭐", credits, stars),
			Payload:     fmt.Sprintf("donate:%s", member.Username),
			Currency:    "XTR",
			Prices: []tele.Price{
				{Label: fmt.Sprintf("%d credits", credits), Amount: int(stars)},
			},
		}

		if _, err := c.Bot().Send(c.Chat(), invoice); err != nil {
			log.Error().Err(err).Str("username", member.Username).Msg("failed to send invoice")
			return c.Reply(msgFailed)
		}
		return nil
	})
}

// HandleCheckout approves every pre-checkout query; validity was
// checked when the invoice was issued.
func (h *CasinoHandler) HandleCheckout(c tele.Context) error {
	return c.Accept()
}

// HandlePayment credits a successful star payment. A replayed
// confirmation for the same charge id is acknowledged but not credited
// again.
func (h *CasinoHandler) HandlePayment(c tele.Context) error {
	ctx := context.Background()
	payment := c.Message().Payment
	sender := c.Sender()
	if payment == nil || sender == nil {
		return nil
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}
	member, err := h.provision.EnsureMember(ctx, username, sender.ID)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to provision donor")
		return c.Reply(msgFailed)
	}

	stars := int64(payment.Total)
	credits, applied, err := h.ledgerService.ApplyDonation(ctx, payment.TelegramChargeID, member, stars)
	if err != nil {
		log.Error().Err(err).
			Str("charge_id", payment.TelegramChargeID).
			Str("username", username).
			Msg("failed to apply donation")
		return c.Reply(msgFailed)
	}
	if !applied {
		log.Warn().
			Str("charge_id", payment.TelegramChargeID).
			Str("username", username).
			Msg("duplicate payment confirmation ignored")
		return nil
	}

	log.Info().
		Str("charge_id", payment.TelegramChargeID).
		Str("username", username).
		Int64("stars", stars).
		Int64("credits", credits).
		Msg("donation credited")
	return c.Reply(fmt.Sprintf("🙏 Thank you! %d credits added for %d ⭐.", credits, stars))
}
