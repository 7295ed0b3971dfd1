// Package model defines the data models for the Telegram moderation bot.
package model

import "time"

// Team is a named group of members. Membership is many-to-many through
// the member_teams join table.
type Team struct {
	ID   int64  `db:"id"`
	Name string `db:"team_name"`
}

// Member is a chat participant known to the bot. Username is the mutable
// display handle and the primary lookup key; TelegramID is the stable
// platform identity, backfilled on first direct contact.
type Member struct {
	ID         int64  `db:"id"`
	Username   string `db:"username"`
	TelegramID *int64 `db:"telegram_id"`
	RoleID     *int64 `db:"role_id"`
	Balance    int64  `db:"balance"`

	// Role is populated by lookups that join roles; nil otherwise.
	Role *Role `db:"-"`
}

// Role is a named privilege rank. Higher level outranks lower.
type Role struct {
	ID    int64  `db:"id"`
	Name  string `db:"role_name"`
	Level int    `db:"level"`
}

// Command is a registered bot command with its presentation metadata.
type Command struct {
	ID             int64   `db:"id"`
	Name           string  `db:"command_name"`
	Emoji          *string `db:"emoji"`
	Description    *string `db:"description"`
	Example        *string `db:"example"`
	Parameters     *string `db:"parameters"`
	Note           *string `db:"note"`
	IsAdminCommand bool    `db:"is_admin_command"`
}

// Topic is a forum topic inside a chat. Commands run inside a topic only
// when listed in its allowed set.
type Topic struct {
	ID          int64   `db:"id"`
	Name        string  `db:"topic_name"`
	Description *string `db:"description"`
}

// CommandHistory is an append-only audit record of a command attempt,
// written whether or not the attempt was authorized.
type CommandHistory struct {
	ID         int64     `db:"id"`
	MemberID   int64     `db:"member_id"`
	TelegramID *int64    `db:"telegram_id"`
	Username   string    `db:"username"`
	Command    string    `db:"command"`
	CreatedAt  time.Time `db:"created_at"`
}

// CasinoWin is an append-only record of a winning wager.
type CasinoWin struct {
	ID        int64     `db:"id"`
	MemberID  int64     `db:"member_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// Payment is a processed donation, keyed by the provider's charge id so
// a replayed confirmation is never credited twice.
type Payment struct {
	ID        int64     `db:"id"`
	ChargeID  string    `db:"telegram_charge_id"`
	MemberID  int64     `db:"member_id"`
	Stars     int64     `db:"stars"`
	Credits   int64     `db:"credits"`
	CreatedAt time.Time `db:"created_at"`
}

// Well-known role names.
const (
	RoleDefaultUser = "default_user" // assigned on first contact
	RoleBanned      = "banned"       // assigned by /ban_member
)

// Ledger defaults.
const (
	DefaultBalance     int64 = 5000 // starting balance for new members
	ReplenishFloor     int64 = 5000 // balance restored by the scheduled job
	ReplenishThreshold int64 = 1000 // strict upper bound for replenishment
	CreditsPerStar     int64 = 200  // donation exchange rate
)
