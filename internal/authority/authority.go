// Package authority holds the role-level comparison rules used by
// member-targeting admin operations (ban, role assignment).
package authority

import "telegram-moderator-bot/internal/model"

// CanActOn reports whether a member holding actor may act on a member
// holding target: the actor must out-rank or equal the target. A nil
// actor role can never act (fail closed); a nil target role is treated
// as level zero.
func CanActOn(actor, target *model.Role) bool {
	if actor == nil {
		return false
	}
	targetLevel := 0
	if target != nil {
		targetLevel = target.Level
	}
	return actor.Level >= targetLevel
}

// CanAssign reports whether actor may hand out the given role. The
// comparison is against the role being assigned, not the recipient's
// current role.
func CanAssign(actor, assigned *model.Role) bool {
	if actor == nil || assigned == nil {
		return false
	}
	return actor.Level >= assigned.Level
}
