package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoted(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		command   string
		operation string
		quoted    string
		remainder string
		ok        bool
	}{
		{
			name:    "plain quoted argument",
			text:    `/add_team "Backend"`,
			command: "add_team",
			quoted:  "Backend", ok: true,
		},
		{
			name:    "quoted argument with remainder",
			text:    `/add_member "Backend" @alice @bob`,
			command: "add_member",
			quoted:  "Backend", remainder: "@alice @bob", ok: true,
		},
		{
			name:    "operation keyword before quotes",
			text:    `/topics_manage add "Announcements" release notes only`,
			command: "topics_manage",
			operation: "add", quoted: "Announcements", remainder: "release notes only", ok: true,
		},
		{
			name:    "bot mention suffix",
			text:    `/add_team@modbot "Backend"`,
			command: "add_team",
			quoted:  "Backend", ok: true,
		},
		{
			name:    "missing quotes",
			text:    `/add_team Backend`,
			command: "add_team",
			ok:      false,
		},
		{
			name:    "different command",
			text:    `/remove_team "Backend"`,
			command: "add_team",
			ok:      false,
		},
		{
			name:    "prefix command must not match",
			text:    `/add_teamster "Backend"`,
			command: "add_team",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, quoted, rem, ok := Quoted(tt.text, tt.command)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.operation, op)
			assert.Equal(t, tt.quoted, quoted)
			assert.Equal(t, tt.remainder, rem)
		})
	}
}

func TestUsernames(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, Usernames("@alice bob"))
	assert.Empty(t, Usernames("   "))
	assert.Equal(t, []string{"carol"}, Usernames("@carol"))
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/ban_member", CommandName("/ban_member @alice"))
	assert.Equal(t, "/help", CommandName("/help@modbot"))
	assert.Equal(t, "", CommandName("hello"))
}

func TestPeriod(t *testing.T) {
	days, err := Period("10d")
	assert.NoError(t, err)
	assert.Equal(t, 10, days)

	days, err = Period("")
	assert.NoError(t, err)
	assert.Equal(t, 30, days)

	_, err = Period("10")
	assert.Error(t, err)
	_, err = Period("-3d")
	assert.Error(t, err)
}
