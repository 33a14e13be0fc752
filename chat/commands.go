package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/riddlerrr/riddlebot/viewer"
)

// watchTimeEpoch marks when minute tracking began; shown with every lookup.
const watchTimeEpoch = "2024-04-03"

func (b *Bot) registerCommands() {
	b.commands = map[string]Handler{
		"watchtime":     b.cmdWatchTime,
		"topwatchers":   b.cmdTopWatchers,
		"song":          b.cmdSong,
		"title":         b.cmdTitle,
		"chipsandgravy": b.cmdChipsAndGravy,
		"dicksize":      b.cmdDickSize,
		"pizza":         b.cmdPizza,
		"ip":            b.cmdIP,
		"bbm":           b.cmdBBM,
		"bbmpin":        b.cmdBBM,
		"build":         b.cmdBuild,
	}
}

func (b *Bot) cmdWatchTime(ctx context.Context, c Context, _ []string) {
	rec, err := b.viewers.Find(ctx, c.Author().ID)
	if errors.Is(err, viewer.ErrNotFound) {
		c.Reply("No data found!")
		return
	}
	if err != nil {
		slog.Error("watchtime lookup failed", slog.String("viewer", c.Author().Login), slog.Any("err", err))
		return
	}
	c.Reply(fmt.Sprintf("You have been watching for %d hours and %d minutes! (logged since %s)",
		rec.WatchTimeMins/60, rec.WatchTimeMins%60, watchTimeEpoch))
}

func (b *Bot) cmdTopWatchers(ctx context.Context, c Context, _ []string) {
	top, err := b.viewers.Top(ctx, 5)
	if err != nil {
		slog.Error("topwatchers lookup failed", slog.Any("err", err))
		return
	}
	if len(top) == 0 {
		c.Reply("No data found!")
		return
	}
	parts := make([]string, 0, len(top))
	for i, rec := range top {
		parts = append(parts, fmt.Sprintf("%d. %s - %dh, %dm",
			i+1, rec.Name, rec.WatchTimeMins/60, rec.WatchTimeMins%60))
	}
	c.Reply(strings.Join(parts, " | "))
}

func (b *Bot) cmdSong(ctx context.Context, c Context, _ []string) {
	if b.spotify == nil {
		return
	}
	track, err := b.spotify.CurrentlyPlaying(ctx)
	if err != nil {
		slog.Error("currently playing lookup failed", slog.Any("err", err))
		return
	}
	if track == nil {
		c.Reply("No song currently playing.")
		return
	}
	c.Reply(fmt.Sprintf("Currently playing: %s by %s | %s",
		track.Name, track.Artist(), track.ExternalURLs.Spotify))
}

func (b *Bot) cmdTitle(ctx context.Context, c Context, args []string) {
	if len(args) == 0 {
		c.Reply("The new title cannot be blank!")
		c.Reply(`Usage: !title "<new title name>" OR !title New Title Name`)
		return
	}
	// Broadcaster and mods only.
	if !strings.EqualFold(c.Author().Login, b.cfg.TwitchChannel) {
		c.Reply("Only the broadcaster can change the title.")
		return
	}
	title := strings.Trim(strings.Join(args, " "), `"`)
	id, err := b.broadcaster(ctx)
	if err != nil {
		slog.Error("broadcaster lookup failed", slog.Any("err", err))
		return
	}
	if err := b.helix.UpdateChannelTitle(ctx, id, title); err != nil {
		slog.Error("title update failed", slog.Any("err", err))
		c.Reply("Failed to update the title.")
		return
	}
	c.Reply("Title updated to: " + title)
}
