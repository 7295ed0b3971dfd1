// Package parse implements the shared argument grammar for commands that
// take a quoted name plus a free-text remainder, e.g.
//
//	/add_member "My Team" @alice @bob
//	/topics_manage add "Announcements" important stuff only
//
// Handlers receive an optional operation keyword, the quoted argument and
// the trimmed remainder; they never look at the raw text themselves.
package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var quotedRe = regexp.MustCompile(`^\s*(?:(\S+)\s+)?"([^"]+)"\s*(.*)$`)

// Quoted splits the text after a command into (operation, quoted,
// remainder). The operation keyword is optional; ok is false when no
// quoted argument is present.
func Quoted(text, commandName string) (operation, quoted, remainder string, ok bool) {
	rest, found := stripCommand(text, commandName)
	if !found {
		return "", "", "", false
	}
	m := quotedRe.FindStringSubmatch(rest)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], strings.TrimSpace(m[3]), true
}

// Usernames normalizes a whitespace-separated username list, stripping a
// leading @ from each entry.
func Usernames(remainder string) []string {
	fields := strings.Fields(remainder)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if name := strings.TrimPrefix(f, "@"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Mention renders a username as an @-mention.
func Mention(username string) string {
	return "@" + strings.TrimPrefix(username, "@")
}

// CommandName extracts the leading /command token from raw text,
// stripping any @botname suffix. Empty when the text is not a command.
func CommandName(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name := strings.Fields(text)[0]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name
}

// Args returns the trimmed argument tail after a command, for commands
// that take no quoted name. Empty when the text is a different command.
func Args(text, commandName string) string {
	rest, found := stripCommand(text, commandName)
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

// stripCommand removes the leading /command (with optional @botname)
// from text, returning the argument tail.
func stripCommand(text, commandName string) (string, bool) {
	text = strings.TrimSpace(text)
	commandName = "/" + strings.TrimPrefix(commandName, "/")
	if !strings.HasPrefix(text, commandName) {
		return "", false
	}
	rest := text[len(commandName):]
	if strings.HasPrefix(rest, "@") {
		// /add_team@modbot "Name"
		if i := strings.IndexAny(rest, " \t\n"); i >= 0 {
			rest = rest[i:]
		} else {
			rest = ""
		}
	}
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") && !strings.HasPrefix(rest, "\n") {
		return "", false
	}
	return rest, true
}

// Period parses a trailing-window argument like "30d" into whole days.
// Defaults to 30 when the argument is empty.
func Period(arg string) (int, error) {
	if arg == "" {
		return 30, nil
	}
	if !strings.HasSuffix(arg, "d") {
		return 0, fmt.Errorf("invalid period %q: expected <N>d", arg)
	}
	var days int
	if _, err := fmt.Sscanf(arg, "%dd", &days); err != nil || days <= 0 {
		return 0, fmt.Errorf("invalid period %q: expected <N>d", arg)
	}
	return days, nil
}
