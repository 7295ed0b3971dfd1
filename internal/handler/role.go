package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-moderator-bot/internal/model"
	"telegram-moderator-bot/internal/parse"
	"telegram-moderator-bot/internal/repository"
	"telegram-moderator-bot/internal/service"
)

// RoleHandler handles role lifecycle, grants and member role changes.
type RoleHandler struct {
	gate        *Gate
	roleService *service.RoleService
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(gate *Gate, roleService *service.RoleService) *RoleHandler {
	return &RoleHandler{gate: gate, roleService: roleService}
}

const roleManageUsage = `Usage:
/role_manage create "Role Name" <level>
/role_manage edit_name "Role Name" "New Name"
/role_manage edit_level "Role Name" <level>
/role_manage delete "Role Name"`

// HandleRoleManage handles /role_manage <operation> "Role Name" [args].
func (h *RoleHandler) HandleRoleManage(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		operation, name, remainder, ok := parse.Quoted(c.Text(), "role_manage")
		if !ok || operation == "" {
			return c.Reply(roleManageUsage)
		}

		switch operation {
		case "create":
			level, err := strconv.Atoi(strings.TrimSpace(remainder))
			if err != nil || level < 0 {
				return c.Reply(roleManageUsage)
			}
			role, err := h.roleService.CreateRole(ctx, name, level)
			if errors.Is(err, repository.ErrAlreadyExists) {
				return c.Reply(fmt.Sprintf("Role %q already exists.", name))
			}
			if err != nil {
				log.Error().Err(err).Str("role", name).Msg("failed to create role")
				return c.Reply(msgFailed)
			}
			return c.Reply(fmt.Sprintf("✅ Role %q created with level %d.", role.Name, role.Level))

		case "edit_name":
			newName := strings.Trim(strings.TrimSpace(remainder), `"`)
			if newName == "" {
				return c.Reply(roleManageUsage)
			}
			if err := h.roleService.RenameRole(ctx, name, newName); err != nil {
				return h.replyRoleErr(c, err, name)
			}
			return c.Reply(fmt.Sprintf("✅ Role %q renamed to %q.", name, newName))

		case "edit_level":
			level, err := strconv.Atoi(strings.TrimSpace(remainder))
			if err != nil || level < 0 {
				return c.Reply(roleManageUsage)
			}
			if err := h.roleService.SetRoleLevel(ctx, name, level); err != nil {
				return h.replyRoleErr(c, err, name)
			}
			return c.Reply(fmt.Sprintf("✅ Role %q is now level %d.", name, level))

		case "delete":
			if err := h.roleService.DeleteRole(ctx, name); err != nil {
				return h.replyRoleErr(c, err, name)
			}
			return c.Reply(fmt.Sprintf("✅ Role %q deleted.", name))

		default:
			return c.Reply(roleManageUsage)
		}
	})
}

// HandleListRoles handles /list_roles.
func (h *RoleHandler) HandleListRoles(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		roles, err := h.roleService.ListRoles(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to list roles")
			return c.Reply(msgFailed)
		}
		if len(roles) == 0 {
			return c.Reply("No roles yet.")
		}

		var b strings.Builder
		b.WriteString("🎭 Roles:\n")
		for _, role := range roles {
			fmt.Fprintf(&b, "• %s — level %d\n", role.Name, role.Level)
		}
		return c.Reply(b.String())
	})
}

// HandleRoleCommandsManage handles
// /role_commands_manage <add_commands|remove_commands> "Role Name" /cmd1 /cmd2.
func (h *RoleHandler) HandleRoleCommandsManage(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, _ *model.Member) error {
		const usage = `Usage: /role_commands_manage <add_commands|remove_commands> "Role Name" /cmd1 /cmd2`

		operation, name, remainder, ok := parse.Quoted(c.Text(), "role_commands_manage")
		commands := strings.Fields(remainder)
		if !ok || len(commands) == 0 {
			return c.Reply(usage)
		}

		var result *service.BatchResult
		var err error
		switch operation {
		case "add_commands":
			result, err = h.roleService.GrantCommands(ctx, name, commands)
		case "remove_commands":
			result, err = h.roleService.RevokeCommands(ctx, name, commands)
		default:
			return c.Reply(usage)
		}
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.Reply(fmt.Sprintf("Role %q does not exist.", name))
		}
		if err != nil {
			log.Error().Err(err).Str("role", name).Msg("failed to change role grants")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatCommandBatch(result, name))
	})
}

// HandleAssignRole handles /assign_role "Role Name" @user1 @user2.
func (h *RoleHandler) HandleAssignRole(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		_, name, remainder, ok := parse.Quoted(c.Text(), "assign_role")
		usernames := parse.Usernames(remainder)
		if !ok || len(usernames) == 0 {
			return c.Reply(`Usage: /assign_role "Role Name" @user1 @user2`)
		}

		result, err := h.roleService.AssignRole(ctx, member, name, usernames)
		if errors.Is(err, repository.ErrRoleNotFound) {
			return c.Reply(fmt.Sprintf("Role %q does not exist.", name))
		}
		if errors.Is(err, service.ErrNotAuthorized) {
			return c.Reply("🚫 Your role level is too low to assign that role.")
		}
		if err != nil {
			log.Error().Err(err).Str("role", name).Msg("failed to assign role")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatBatch(result, "now "+name, "unchanged"))
	})
}

// HandleBanMember handles /ban_member @user1 @user2.
func (h *RoleHandler) HandleBanMember(c tele.Context) error {
	return h.gate.Run(c, func(ctx context.Context, member *model.Member) error {
		usernames := parse.Usernames(parse.Args(c.Text(), "ban_member"))
		if len(usernames) == 0 {
			return c.Reply("Usage: /ban_member @user1 @user2")
		}

		result, err := h.roleService.BanMembers(ctx, member, usernames)
		if err != nil {
			log.Error().Err(err).Msg("failed to ban members")
			return c.Reply(msgFailed)
		}
		return c.Reply(formatBatch(result, "banned", "unchanged"))
	})
}

func (h *RoleHandler) replyRoleErr(c tele.Context, err error, name string) error {
	if errors.Is(err, repository.ErrRoleNotFound) {
		return c.Reply(fmt.Sprintf("Role %q does not exist.", name))
	}
	log.Error().Err(err).Str("role", name).Msg("role operation failed")
	return c.Reply(msgFailed)
}

// formatCommandBatch renders a grant/allow-list change result.
func formatCommandBatch(r *service.BatchResult, subject string) string {
	var b strings.Builder
	write := func(names []string, verb string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", verb, strings.Join(names, " "))
	}

	write(r.Added, "✅ added to "+subject)
	write(r.Removed, "✅ removed from "+subject)
	write(r.Already, "ℹ️ already on "+subject)
	write(r.NotFound, "❓ unknown")
	if b.Len() == 0 {
		return "Nothing to do."
	}
	return strings.TrimRight(b.String(), "\n")
}
