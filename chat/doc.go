// Package chat contains the Twitch IRC bot: command dispatch, channel-point
// reward handling, and the Discord mirror.
//
// The bot joins a single channel and reacts to two kinds of events:
//   - prefixed commands (!watchtime, !topwatchers, the fun commands, !song),
//     dispatched case-insensitively through a handler table;
//   - channel-point redemptions carried on the custom-reward-id message tag,
//     routed by the reward ids in config (riddle, coinflip prediction,
//     Spotify song request).
//
// Handlers never talk to the IRC client directly. They receive a Context
// carrying the author's identity and the reply capabilities, which keeps
// them unit-testable with a fake. Every inbound message, and every line the
// bot itself sends, is mirrored to the configured Discord webhook.
//
// Credentials: the IRC client needs the bot username and an OAuth token with
// chat:read/chat:edit scopes. Reward handling additionally needs broadcaster
// scopes on the Helix side (predictions).
package chat
