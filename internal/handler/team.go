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

// TeamHandler handles team lifecycle and membership commands.
type TeamHandler struct {
	gate        *Gate
	teamService *service.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(gate *Gate, teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{gate: gate, teamService: teamService}
}

// HandleAddTeam handles /add_team "Team Name".
func (h *TeamHandler) HandleAddTeam(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		_, name, _, ok := parse.Quoted(c.Text(), "add_team")
		if !ok {
			return c.Reply(`Usage: /add_team "Team Name"`)
		}

		team, err := h.teamService.CreateTeam(ctx, name)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return c.Reply(fmt.Sprintf("Team %q already exists.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("team", name).Msg("failed to create team")
			return c.Reply(msgFailed)
		}
		return c.Reply(fmt.Sprintf("✅ Team %q created.", team.Name))
	})
}

// HandleRemoveTeam handles /remove_team "Team Name".
func (h *TeamHandler) HandleRemoveTeam(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		_, name, _, ok := parse.Quoted(c.Text(), "remove_team")
		if !ok {
			return c.Reply(`Usage: /remove_team "Team Name"`)
		}

		err := h.teamService.DeleteTeam(ctx, name)
		if errors.Is(err, repository.ErrTeamNotFound) {
			return c.Reply(fmt.Sprintf("Team %q does not exist.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("team", name).Msg("failed to delete team")
			return c.Reply(msgFailed)
		}
		return c.Reply(fmt.Sprintf("✅ Team %q removed.", name))
	})
}

// HandleTeams handles /teams.
func (h *TeamHandler) HandleTeams(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		teams, err := h.teamService.ListTeams(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list teams")
			return c.Reply(msgFailed)
		}
		if len(teams) == 0 {
			return c.Reply("No teams yet.")
		}

		var b strings.Builder
		b.WriteString("👥 Teams:\n")
		for _, team := range teams {
			members, err := h.teamService.Members(ctx, team.Name)
			if err != nil {
				log.Error().Err(err).Str("team", team.Name).Msg("failed to list team members")
				return c.Reply(msgFailed)
			}
			fmt.Fprintf(&b, "• %s (%d members)\n", team.Name, len(members))
		}
		return c.Reply(b.String())
	})
}

// HandleAddMember handles /add_member "Team Name" @user1 @user2.
func (h *TeamHandler) HandleAddMember(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		_, name, remainder, ok := parse.Quoted(c.Text(), "add_member")
		usernames := parse.Usernames(remainder)
		if !ok || len(usernames) == 0 {
			return c.Reply(`Usage: /add_member "Team Name" @user1 @user2`)
		}

		result, err := h.teamService.AddMembers(ctx, name, usernames)
		if errors.Is(err, repository.ErrTeamNotFound) {
			return c.Reply(fmt.Sprintf("Team %q does not exist.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("team", name).Msg("failed to add members")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatBatch(result, "added to "+name, "already in "+name))
	})
}

// HandleRemoveMember handles /remove_member "Team Name" @user1 @user2.
func (h *TeamHandler) HandleRemoveMember(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		_, name, remainder, ok := parse.Quoted(c.Text(), "remove_member")
		usernames := parse.Usernames(remainder)
		if !ok || len(usernames) == 0 {
			return c.Reply(`Usage: /remove_member "Team Name" @user1 @user2`)
		}

		result, err := h.teamService.RemoveMembers(ctx, name, usernames)
		if errors.Is(err, repository.ErrTeamNotFound) {
			return c.Reply(fmt.Sprintf("Team %q does not exist.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("team", name).Msg("failed to remove members")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatBatch(result, "removed from "+name, "not in "+name))
	})
}

// HandleTag handles /tag "Team Name" [text], re-sending the caller's
// text or attachment with the team's members mentioned and deleting the
// original message.
func (h *TeamHandler) HandleTag(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		_, name, remainder, ok := parse.Quoted(c.Text(), "tag")
		if !ok {
			return c.Reply(`Usage: /tag "Team Name" your message`)
		}

		members, err := h.teamService.Members(ctx, name)
		if errors.Is(err, repository.ErrTeamNotFound) {
			return c.Reply(fmt.Sprintf("Team %q does not exist.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("team", name).Msg("failed to resolve team")
			return c.Reply(msgFailed)
		}
		if len(members) == 0 {
			return c.Reply(fmt.Sprintf("Team %q has no members.", name))
		}

		mentions := make([]string, 0, len(members))
		for _, m := range members {
			mentions = append(mentions, parse.Mention(m.Username))
		}
		text := strings.TrimSpace(remainder + "\n\n" + strings.Join(mentions, " "))

		if err := h.resend(c, text); err != nil {
			log.Error().Err(err).Str("team", name).Msg("failed to send tag message")
			return c.Reply(msgFailed)
		}

		if err := c.Delete(); err != nil {
			// Needs delete rights in the chat; the tag already went out.
			log.Debug().Err(err).Msg("failed to delete tag invocation")
		}
		return nil
	})
}

// resend sends the tag text, carrying over a photo, document or audio
// attachment from the invoking message as the caption carrier.
func (h *TeamHandler) resend(c tele.Context, text string) error {
	msg := c.Message()
	var media tele.Sendable
	switch {
	case msg.Photo != nil:
		photo := *msg.Photo
		photo.Caption = text
		media = &photo
	case msg.Document != nil:
		doc := *msg.Document
		doc.Caption = text
		media = &doc
	case msg.Audio != nil:
		audio := *msg.Audio
		audio.Caption = text
		media = &audio
	}

	var err error
	if media != nil {
		_, err = c.Bot().Send(c.Chat(), media)
	} else {
		_, err = c.Bot().Send(c.Chat(), text)
	}
	return err
}

// formatBatch renders a batch membership result, one bucket per line.
func formatBatch(r *service.BatchResult, doneVerb, alreadyVerb string) string {
	var b strings.Builder
	writeBucket := func(names []string, verb string) {
		if len(names) == 0 {
			return
		}
		mentions := make([]string, 0, len(names))
		for _, n := range names {
			mentions = append(mentions, parse.Mention(n))
		}
		fmt.Fprintf(&b, "%s: %s\n", verb, strings.Join(mentions, " "))
	}

	writeBucket(r.Added, "✅ "+doneVerb)
	writeBucket(r.Removed, "✅ "+doneVerb)
	writeBucket(r.Already, "ℹ️ "+alreadyVerb)
	writeBucket(r.NotFound, "❓ not found")
	writeBucket(r.Skipped, "🚫 outranks you")
	if b.Len() == 0 {
		return "Nothing to do."
	}
	return strings.TrimRight(b.String(), "\n")
}
