package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command with its menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are guarded by the access middleware and never listed.
	AdminOnly bool
	Hidden    bool
	// Aliases are plain text triggers such as reply keyboard labels.
	Aliases []string
}

// Listed reports whether the command belongs in the public command menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly
}
