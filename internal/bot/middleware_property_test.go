// Package bot provides middleware for the Telegram bot.
// Property-based tests for the whitelist predicate.
package bot

import (
	"testing"

	"pgregory.net/rapid"

	"telegram-moderator-bot/internal/config"
)

// TestWhitelistEnforcementProperty checks that a chat is allowed if and
// only if its id is on the allow list.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(1, 10).Draw(t, "numChats")
		chatIDs := make([]int64, numChats)
		for i := 0; i < numChats; i++ {
			chatIDs[i] = rapid.Int64Range(-1000000000, 1000000000).Draw(t, "chatID")
		}

		cfg := &config.Config{
			Whitelist: config.WhitelistConfig{Chats: chatIDs},
		}

		probe := rapid.Int64Range(-1000000000, 1000000000).Draw(t, "probe")

		expected := false
		for _, id := range chatIDs {
			if id == probe {
				expected = true
				break
			}
		}

		if cfg.IsChatAllowed(probe) != expected {
			t.Fatalf("whitelist mismatch: probe=%d, chats=%v, expected=%v",
				probe, chatIDs, expected)
		}
	})
}

// TestWhitelistKnownChatProperty checks that every listed chat is
// allowed.
func TestWhitelistKnownChatProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(1, 10).Draw(t, "numChats")
		chatIDs := make([]int64, numChats)
		for i := 0; i < numChats; i++ {
			chatIDs[i] = rapid.Int64Range(-1000000000, 1000000000).Draw(t, "chatID")
		}

		cfg := &config.Config{
			Whitelist: config.WhitelistConfig{Chats: chatIDs},
		}

		index := rapid.IntRange(0, numChats-1).Draw(t, "index")
		if !cfg.IsChatAllowed(chatIDs[index]) {
			t.Fatalf("listed chat %d was rejected", chatIDs[index])
		}
	})
}

// TestWhitelistEmptyListAllowsNobody checks the fail-closed default: an
// unset allow list means the bot answers no chat at all.
func TestWhitelistEmptyListAllowsNobody(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{}
		probe := rapid.Int64Range(-1000000000, 1000000000).Draw(t, "probe")
		if cfg.IsChatAllowed(probe) {
			t.Fatalf("empty whitelist allowed chat %d", probe)
		}
	})
}
