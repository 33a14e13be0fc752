package watchtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/riddlerrr/riddlebot/twitchapi"
)

// HelixPresence adapts the Helix client to the PresenceSource interface for a
// single channel. Broadcaster and moderator (bot) ids are resolved lazily on
// first use and cached; a resolution failure is a tick failure, not fatal.
type HelixPresence struct {
	Helix       *twitchapi.HelixClient
	Channel     string // broadcaster login
	BotUsername string // moderator login used for the chatters call

	mu            sync.Mutex
	broadcasterID string
	moderatorID   string
}

// IsLive reports whether the channel currently has a live stream.
func (p *HelixPresence) IsLive(ctx context.Context) (bool, error) {
	streams, err := p.Helix.GetStreams(ctx, p.Channel)
	if err != nil {
		return false, err
	}
	return len(streams) > 0, nil
}

// Chatters lists the accounts currently present in the channel's chat.
func (p *HelixPresence) Chatters(ctx context.Context) ([]Chatter, error) {
	broadcasterID, moderatorID, err := p.resolveIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve channel ids: %w", err)
	}
	infos, err := p.Helix.GetChatters(ctx, broadcasterID, moderatorID)
	if err != nil {
		return nil, err
	}
	out := make([]Chatter, 0, len(infos))
	for _, c := range infos {
		out = append(out, Chatter{ID: c.UserID, Login: c.UserLogin, DisplayName: c.UserName})
	}
	return out, nil
}

func (p *HelixPresence) resolveIDs(ctx context.Context) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broadcasterID != "" && p.moderatorID != "" {
		return p.broadcasterID, p.moderatorID, nil
	}
	broadcasterID, err := p.Helix.GetUserID(ctx, p.Channel)
	if err != nil {
		return "", "", err
	}
	moderatorID, err := p.Helix.GetUserID(ctx, p.BotUsername)
	if err != nil {
		return "", "", err
	}
	p.broadcasterID = broadcasterID
	p.moderatorID = moderatorID
	return broadcasterID, moderatorID, nil
}
