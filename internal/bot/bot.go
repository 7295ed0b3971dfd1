// Package bot provides the Telegram bot initialization and handler
// registration.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/config"
	"telegram-moderator-bot/internal/handler"
	"telegram-moderator-bot/internal/repository"
	"telegram-moderator-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	commandRepo *repository.CommandRepository

	teamHandler   *handler.TeamHandler
	roleHandler   *handler.RoleHandler
	topicHandler  *handler.TopicHandler
	casinoHandler *handler.CasinoHandler
	funHandler    *handler.FunHandler
	helpHandler   *handler.HelpHandler
	statsHandler  *handler.StatsHandler
	adminHandler  *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config           *config.Config
	CommandRepo      *repository.CommandRepository
	ProvisionService *service.ProvisionService
	PermissionService *service.PermissionService
	TeamService      *service.TeamService
	RoleService      *service.RoleService
	TopicService     *service.TopicService
	CommandService   *service.CommandService
	LedgerService    *service.LedgerService
	StatsService     *service.StatsService
}

// catalogueEntry binds a command name to its handler and its menu
// metadata. The database rows seeded from the catalogue are what the
// permission evaluator checks grants against.
type catalogueEntry struct {
	name        string
	description string
	admin       bool
	handler     tele.HandlerFunc
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	gate := handler.NewGate(deps.ProvisionService, deps.PermissionService)

	b := &Bot{
		bot:         teleBot,
		cfg:         deps.Config,
		commandRepo: deps.CommandRepo,

		teamHandler:   handler.NewTeamHandler(gate, deps.TeamService),
		roleHandler:   handler.NewRoleHandler(gate, deps.RoleService),
		topicHandler:  handler.NewTopicHandler(gate, deps.TopicService),
		casinoHandler: handler.NewCasinoHandler(deps.Config, gate, deps.LedgerService, deps.ProvisionService),
		funHandler:    handler.NewFunHandler(deps.Config, gate),
		helpHandler:   handler.NewHelpHandler(gate, deps.CommandService),
		statsHandler:  handler.NewStatsHandler(gate, deps.StatsService),
		adminHandler:  handler.NewAdminHandler(gate, deps.CommandService, deps.LedgerService),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// catalogue lists every command the bot serves. Admin entries are kept
// out of the Telegram command menu.
func (b *Bot) catalogue() []catalogueEntry {
	return []catalogueEntry{
		{"/help", "List the commands available to you", false, b.helpHandler.HandleHelp},
		{"/help_admin", "List administrative commands", true, b.helpHandler.HandleHelpAdmin},

		{"/teams", "List teams", false, b.teamHandler.HandleTeams},
		{"/tag", "Mention every member of a team", false, b.teamHandler.HandleTag},
		{"/add_team", "Create a team", true, b.teamHandler.HandleAddTeam},
		{"/remove_team", "Delete a team", true, b.teamHandler.HandleRemoveTeam},
		{"/add_member", "Add members to a team", true, b.teamHandler.HandleAddMember},
		{"/remove_member", "Remove members from a team", true, b.teamHandler.HandleRemoveMember},

		{"/list_roles", "List roles and their levels", false, b.roleHandler.HandleListRoles},
		{"/role_manage", "Create, edit or delete a role", true, b.roleHandler.HandleRoleManage},
		{"/role_commands_manage", "Change a role's command grants", true, b.roleHandler.HandleRoleCommandsManage},
		{"/assign_role", "Put members on a role", true, b.roleHandler.HandleAssignRole},
		{"/ban_member", "Move members to the banned role", true, b.roleHandler.HandleBanMember},

		{"/list_topics", "List registered topics", false, b.topicHandler.HandleListTopics},
		{"/topics_manage", "Register, edit or delete a topic", true, b.topicHandler.HandleTopicsManage},
		{"/topics_commands_manage", "Change a topic's allowed commands", true, b.topicHandler.HandleTopicsCommandsManage},

		{"/casino", "Spin the slot machine", false, b.casinoHandler.HandleCasino},
		{"/balance", "Show your credit balance", false, b.casinoHandler.HandleBalance},
		{"/donate", "Buy credits with Telegram Stars", false, b.casinoHandler.HandleDonate},

		{"/random_number", "Draw a random number", false, b.funHandler.HandleRandomNumber},
		{"/random_choice", "Pick one of the given options", false, b.funHandler.HandleRandomChoice},

		{"/top_commands", "Most used commands", false, b.statsHandler.HandleTopCommands},
		{"/top_users", "Most active users", false, b.statsHandler.HandleTopUsers},
		{"/top_users_handler", "Top callers of one command", false, b.statsHandler.HandleTopUsersForCommand},
		{"/top_winners", "Biggest casino winners", false, b.statsHandler.HandleTopWinners},

		{"/edit_handler", "Edit a command's help metadata", true, b.adminHandler.HandleEditHandler},
		{"/replenish", "Run the low-balance top-up now", true, b.adminHandler.HandleReplenish},
	}
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(RecoveryMiddleware())
}

func (b *Bot) registerHandlers() {
	for _, entry := range b.catalogue() {
		b.bot.Handle(entry.name, entry.handler)
	}

	b.bot.Handle(tele.OnCheckout, b.casinoHandler.HandleCheckout)
	b.bot.Handle(tele.OnPayment, b.casinoHandler.HandlePayment)
}

// SeedCommands makes sure every catalogue command has a row in the
// commands table, so grants can be attached to it. Existing rows keep
// their edited metadata.
func (b *Bot) SeedCommands(ctx context.Context) error {
	for _, entry := range b.catalogue() {
		_, err := b.commandRepo.Create(ctx, entry.name, entry.admin)
		if errors.Is(err, repository.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed command %s: %w", entry.name, err)
		}
	}
	return nil
}

// PublishMenu registers the non-admin commands as the Telegram command
// menu.
func (b *Bot) PublishMenu() error {
	var menu []tele.Command
	for _, entry := range b.catalogue() {
		if entry.admin {
			continue
		}
		menu = append(menu, tele.Command{
			Text:        entry.name[1:], // menu entries carry no slash
			Description: entry.description,
		})
	}
	if err := b.bot.SetCommands(menu); err != nil {
		return fmt.Errorf("failed to publish command menu: %w", err)
	}
	return nil
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("starting bot")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("stopping bot")
	b.bot.Stop()
}
