package chat

import (
	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Author identifies the sender of a chat message.
type Author struct {
	ID          string
	Login       string
	DisplayName string
}

// Name returns the display name, falling back to the login.
func (a Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Login
}

// Context is the capability set handed to command and reward handlers:
// who spoke, and how to answer. Implementations must be safe to use from
// the handler's goroutine.
type Context interface {
	Author() Author
	// MessageID is the id of the triggering message (used for /delete).
	MessageID() string
	// Reply sends a threaded reply to the triggering message.
	Reply(text string)
	// Say sends a plain message to the channel.
	Say(text string)
}

// ircContext adapts a go-twitch-irc private message to the Context interface.
type ircContext struct {
	bot *Bot
	msg twitch.PrivateMessage
}

func (c *ircContext) Author() Author {
	return Author{
		ID:          c.msg.User.ID,
		Login:       c.msg.User.Name,
		DisplayName: c.msg.User.DisplayName,
	}
}

func (c *ircContext) MessageID() string { return c.msg.ID }

func (c *ircContext) Reply(text string) {
	c.bot.reply(c.msg.ID, text)
}

func (c *ircContext) Say(text string) {
	c.bot.say(text)
}
