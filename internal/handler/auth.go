// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/parse"
	"telegram-moderator-bot/internal/service"
)

// Reply texts shared by the handlers.
const (
	msgNotPermitted = "🚫 You are not permitted to use this command here."
	msgFailed       = "❌ Something went wrong, please try again later."
)

// Gate provisions the sender and asks the permission evaluator whether
// the invoked command may run. Every handler passes through it, so
// every attempt lands in the audit log.
type Gate struct {
	provision  *service.ProvisionService
	permission *service.PermissionService
}

// NewGate creates a new Gate instance.
func NewGate(provision *service.ProvisionService, permission *service.PermissionService) *Gate {
	return &Gate{provision: provision, permission: permission}
}

// Authorize resolves the sender to a member and evaluates the command.
// A nil member means the update carried no usable sender and should be
// ignored. allowed is false on denial; the caller replies and stops.
func (g *Gate) Authorize(ctx context.Context, c tele.Context) (member *model.Member, allowed bool, err error) {
	sender := c.Sender()
	if sender == nil {
		return nil, false, nil
	}

	username := sender.Username
	if username == "" {
		username = sender.FirstName
	}

	member, err = g.provision.EnsureMember(ctx, username, sender.ID)
	if err != nil {
		return nil, false, err
	}

	commandName := parse.CommandName(c.Text())
	allowed, err = g.permission.Authorize(ctx, member, commandName, topicName(c), c.Text())
	if err != nil {
		return nil, false, err
	}
	return member, allowed, nil
}

// Run wraps a handler body with the gate: provision, authorize, reply
// on denial, log and reply generically on infrastructure failure.
func (g *Gate) Run(c tele.Context, fn func(ctx context.Context, member *model.Member) error) error {
	ctx := context.Background()

	member, allowed, err := g.Authorize(ctx, c)
	if err != nil {
		log.Error().Err(err).Str("text", c.Text()).Msg("authorization failed")
		return c.Reply(msgFailed)
	}
	if member == nil {
		return nil
	}
	if !allowed {
		return c.Reply(msgNotPermitted)
	}
	return fn(ctx, member)
}

// topicName extracts the forum topic name the message was sent in.
// Commands outside a forum topic are not topic-gated.
func topicName(c tele.Context) string {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.TopicCreated == nil {
		return ""
	}
	return msg.ReplyTo.TopicCreated.Name
}
