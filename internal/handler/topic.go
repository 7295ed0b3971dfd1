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

// TopicHandler handles forum topic registration and allow lists.
type TopicHandler struct {
	gate         *Gate
	topicService *service.TopicService
}

// NewTopicHandler creates a new TopicHandler.
func NewTopicHandler(gate *Gate, topicService *service.TopicService) *TopicHandler {
	return &TopicHandler{gate: gate, topicService: topicService}
}

const topicsManageUsage = `Usage:
/topics_manage add "Topic Name" [description]
/topics_manage edit "Topic Name" new description
/topics_manage delete "Topic Name"`

// HandleTopicsManage handles /topics_manage <add|edit|delete> "Topic Name" [description].
func (h *TopicHandler) HandleTopicsManage(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		operation, name, remainder, ok := parse.Quoted(c.Text(), "topics_manage")
		if !ok || operation == "" {
			return c.Reply(topicsManageUsage)
		}

		switch operation {
		case "add":
			var description *string
			if remainder != "" {
				description = &remainder
			}
			topic, err := h.topicService.CreateTopic(ctx, name, description)
			if errors.Is(err, repository.ErrAlreadyExists) {
				return c.Reply(fmt.Sprintf("Topic %q is already registered.", name))
			}
			if err != nil {
				log.Error().Err(err).Str("topic", name).Msg("failed to create topic")
				return c.Reply(msgFailed)
			}
			return c.Reply(fmt.Sprintf("✅ Topic %q registered.", topic.Name))

		case "edit":
			if remainder == "" {
				return c.Reply(topicsManageUsage)
			}
			if err := h.topicService.EditTopic(ctx, name, remainder); err != nil {
				return h.replyTopicErr(c, err, name)
			}
			return c.Reply(fmt.Sprintf("✅ Topic %q updated.", name))

		case "delete":
			if err := h.topicService.DeleteTopic(ctx, name); err != nil {
				return h.replyTopicErr(c, err, name)
			}
			return c.Reply(fmt.Sprintf("✅ Topic %q unregistered.", name))

		default:
			return c.Reply(topicsManageUsage)
		}
	})
}

// HandleListTopics handles /list_topics.
func (h *TopicHandler) HandleListTopics(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		topics, err := h.topicService.ListTopics(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list topics")
			return c.Reply(msgFailed)
		}
		if len(topics) == 0 {
			return c.Reply("No topics registered.")
		}

		var b strings.Builder
		b.WriteString("📌 Topics:\n")
		for _, topic := range topics {
			commands, err := h.topicService.Commands(ctx, topic.Name)
			if err != nil {
				log.Error().Err(err).Str("topic", topic.Name).Msg("failed to list topic commands")
				return c.Reply(msgFailed)
			}
			fmt.Fprintf(&b, "• %s", topic.Name)
			if topic.Description != nil {
				fmt.Fprintf(&b, " — %s", *topic.Description)
			}
			fmt.Fprintf(&b, " (%d commands allowed)\n", len(commands))
		}
		return c.Reply(b.String())
	})
}

// HandleTopicsCommandsManage handles
// /topics_commands_manage <add|remove> "Topic Name" /cmd1 /cmd2.
func (h *TopicHandler) HandleTopicsCommandsManage(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		const usage = `Usage: /topics_commands_manage <add|remove> "Topic Name" /cmd1 /cmd2`

		operation, name, remainder, ok := parse.Quoted(c.Text(), "topics_commands_manage")
		commands := strings.Fields(remainder)
		if !ok || len(commands) == 0 {
			return c.Reply(usage)
		}

		var result *service.BatchResult
		var err error
		switch operation {
		case "add":
			result, err = h.topicService.AllowCommands(ctx, name, commands)
		case "remove":
			result, err = h.topicService.DisallowCommands(ctx, name, commands)
		default:
			return c.Reply(usage)
		}
		if errors.Is(err, repository.ErrTopicNotFound) {
			return c.Reply(fmt.Sprintf("Topic %q is not registered.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("topic", name).Msg("failed to change topic allow list")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatCommandBatch(result, name))
	})
}

func (h *TopicHandler) replyTopicErr(c tele.Context, err error, name string) error {
	if errors.Is(err, repository.ErrTopicNotFound) {
		return c.Reply(fmt.Sprintf("Topic %q is not registered.", name))
	}
	log.Error().Err(err).Str("topic", name).Msg("topic operation failed")
	return c.Reply(msgFailed)
}
