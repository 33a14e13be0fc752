package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/riddlerrr/riddlebot/spotify"
	"github.com/riddlerrr/riddlebot/telemetry"
	"github.com/riddlerrr/riddlebot/twitchapi"
)

// handleReward routes a channel-point redemption by its reward id. Handlers
// run in their own goroutine because riddle and coinflip block for their
// reveal windows.
func (b *Bot) handleReward(ctx context.Context, c Context, rewardID, content string) {
	if rewardID == "" {
		return
	}
	switch rewardID {
	case b.cfg.RiddleRewardID:
		telemetry.IncReward()
		go b.riddleReward(context.WithoutCancel(ctx), c)
	case b.cfg.CoinflipRewardID:
		telemetry.IncReward()
		go b.coinflipReward(context.WithoutCancel(ctx), c)
	case b.cfg.SongRequestRewardID:
		telemetry.IncReward()
		go b.songRequestReward(context.WithoutCancel(ctx), c, content)
	}
}

func (b *Bot) riddleReward(ctx context.Context, c Context) {
	if b.riddles == nil {
		return
	}
	r, err := b.riddles.Random(ctx)
	if err != nil {
		slog.Error("riddle fetch failed", slog.Any("err", err))
		return
	}
	c.Reply(r.Riddle + " You have 30 seconds to guess the answer")
	select {
	case <-ctx.Done():
		return
	case <-time.After(b.RiddleRevealDelay):
	}
	c.Reply("The answer to your riddle was: " + r.Answer)
}

func (b *Bot) coinflipReward(ctx context.Context, c Context) {
	broadcasterID, err := b.broadcaster(ctx)
	if err != nil {
		slog.Error("broadcaster lookup failed", slog.Any("err", err))
		return
	}
	window := int(b.CoinflipWindow / time.Second)
	pred, err := b.helix.CreatePrediction(ctx, broadcasterID, "Heads or Tails?", []string{"Heads", "Tails"}, window)
	if errors.Is(err, twitchapi.ErrPredictionActive) {
		c.Say("A prediction is already underway!")
		return
	}
	if err != nil {
		slog.Error("prediction create failed", slog.Any("err", err))
		c.Say(fmt.Sprintf("An error occurred because @%s cannot make a good bot. 🙃", b.cfg.TwitchChannel))
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(b.CoinflipWindow):
	}

	result := "Heads"
	if rand.Intn(2) == 1 { //nolint:gosec // G404: game randomness
		result = "Tails"
	}
	outcome := pred.Outcome(result)
	if outcome == nil {
		slog.Error("prediction outcome missing", slog.String("result", result))
		return
	}
	if err := b.helix.ResolvePrediction(ctx, broadcasterID, pred.ID, outcome.ID); err != nil {
		slog.Error("prediction resolve failed", slog.Any("err", err))
		return
	}
	c.Say(fmt.Sprintf("The result is %s!", result))
}

func (b *Bot) songRequestReward(ctx context.Context, c Context, content string) {
	if b.spotify == nil {
		return
	}
	fail := func() {
		c.Reply("Unable to find the song you have linked.")
		// Remove the redemption message so the unusable link doesn't linger.
		c.Say("/delete " + c.MessageID())
	}

	trackID, err := spotify.ParseTrackID(content)
	if err != nil {
		fail()
		return
	}
	track, err := b.spotify.GetTrack(ctx, trackID)
	if err != nil {
		if !errors.Is(err, spotify.ErrNotFound) {
			slog.Error("track lookup failed", slog.Any("err", err))
		}
		fail()
		return
	}
	if err := b.spotify.AddToQueue(ctx, track.URI); err != nil {
		slog.Error("queue add failed", slog.Any("err", err))
		fail()
		return
	}
	c.Reply(fmt.Sprintf("Added %s by %s to the queue.", track.Name, track.Artist()))
	if err := b.spotify.AddToPlaylist(ctx, track.URI); err != nil {
		slog.Warn("playlist append failed", slog.Any("err", err))
	}
}
