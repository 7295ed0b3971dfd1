// Package bot provides middleware for the Telegram bot.
package bot

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/config"
)

// WhitelistMiddleware drops every update from a chat outside the allow
// list before any database lookup happens. There is no empty-list
// bypass: an empty allow list means the bot answers nobody.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type)).
					Msg("ignoring update from non-whitelisted chat")
				return nil
			}

			return next(c)
		}
	}
}

// LoggingMiddleware logs every incoming update.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("recovered from panic in handler")
					_ = c.Reply("❌ Something went wrong, please try again later.")
				}
			}()
			return next(c)
		}
	}
}
