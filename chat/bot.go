package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/riddlerrr/riddlebot/config"
	"github.com/riddlerrr/riddlebot/discord"
	"github.com/riddlerrr/riddlebot/riddleapi"
	"github.com/riddlerrr/riddlebot/spotify"
	"github.com/riddlerrr/riddlebot/telemetry"
	"github.com/riddlerrr/riddlebot/twitchapi"
	"github.com/riddlerrr/riddlebot/viewer"
)

// Handler processes one invocation of a chat command.
type Handler func(ctx context.Context, c Context, args []string)

// Bot is the Twitch chat bot. Construct with New, then Start.
type Bot struct {
	cfg     *config.Config
	viewers *viewer.Store
	helix   *twitchapi.HelixClient
	discord *discord.Client
	riddles *riddleapi.Client
	spotify *spotify.Client

	client   *twitch.Client
	commands map[string]Handler

	// RiddleRevealDelay and CoinflipWindow are shortened in tests.
	RiddleRevealDelay time.Duration
	CoinflipWindow    time.Duration

	// ircAddr overrides the IRC endpoint in tests (plain TCP, no TLS).
	ircAddr string

	broadcasterID string
}

// New wires a Bot from its collaborators. Nil discord/riddles/spotify disable
// the corresponding features.
func New(cfg *config.Config, viewers *viewer.Store, helix *twitchapi.HelixClient, dc *discord.Client, riddles *riddleapi.Client, sp *spotify.Client) *Bot {
	b := &Bot{
		cfg:               cfg,
		viewers:           viewers,
		helix:             helix,
		discord:           dc,
		riddles:           riddles,
		spotify:           sp,
		RiddleRevealDelay: 30 * time.Second,
		CoinflipWindow:    60 * time.Second,
	}
	b.registerCommands()
	return b
}

// Start connects to Twitch IRC and blocks until the context is cancelled or
// the connection fails permanently.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.cfg.ValidateChatReady(); err != nil {
		return err
	}
	b.client = twitch.NewClient(b.cfg.TwitchBotUsername, b.cfg.TwitchOAuthToken)
	if b.ircAddr != "" {
		b.client.IrcAddress = b.ircAddr
		b.client.TLS = false
	}

	b.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		b.handleMessage(ctx, msg)
	})
	b.client.OnConnect(func() {
		slog.Info("twitch chat connected",
			slog.String("channel", b.cfg.TwitchChannel),
			slog.String("as", b.cfg.TwitchBotUsername))
	})

	go func() {
		<-ctx.Done()
		b.client.Disconnect()
	}()

	b.client.Join(b.cfg.TwitchChannel)
	err := b.client.Connect()
	if ctx.Err() != nil {
		// Shutdown path: Disconnect makes Connect return an error we ignore.
		return nil
	}
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg twitch.PrivateMessage) {
	c := &ircContext{bot: b, msg: msg}
	b.forwardToDiscord(ctx, c.Author().Name(), msg.Message)

	if msg.CustomRewardID != "" {
		b.handleReward(ctx, c, msg.CustomRewardID, msg.Message)
		return
	}

	prefix := b.cfg.CommandPrefix
	if !strings.HasPrefix(msg.Message, prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Message, prefix))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	handler, ok := b.commands[name]
	if !ok {
		return
	}
	telemetry.IncCommand()
	slog.Debug("chat command", slog.String("command", name), slog.String("user", c.Author().Login))
	handler(ctx, c, fields[1:])
}

func (b *Bot) forwardToDiscord(ctx context.Context, username, content string) {
	if !b.discord.Enabled() {
		return
	}
	go func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := b.discord.Forward(fctx, username, content); err != nil {
			slog.Warn("discord forward failed", slog.Any("err", err))
		}
	}()
}

func (b *Bot) say(text string) {
	if b.client != nil {
		b.client.Say(b.cfg.TwitchChannel, text)
	}
	// Mirror the bot's own lines too; IRC does not echo them back.
	b.forwardToDiscord(context.Background(), b.cfg.TwitchBotUsername, text)
}

func (b *Bot) reply(parentID, text string) {
	if b.client != nil {
		b.client.Reply(b.cfg.TwitchChannel, parentID, text)
	}
	b.forwardToDiscord(context.Background(), b.cfg.TwitchBotUsername, text)
}

// broadcaster resolves and caches the channel owner's user id.
func (b *Bot) broadcaster(ctx context.Context) (string, error) {
	if b.broadcasterID != "" {
		return b.broadcasterID, nil
	}
	id, err := b.helix.GetUserID(ctx, b.cfg.TwitchChannel)
	if err != nil {
		return "", err
	}
	b.broadcasterID = id
	return id, nil
}
