// Package watchtime tracks how long viewers spend in the channel's chat.
//
// A single Sampler loop wakes on a fixed interval, asks Twitch whether the
// channel is live and who is sitting in chat, drops the broadcaster, the bot
// itself, and known third-party bots, then credits every remaining viewer one
// interval's worth of minutes in the persistent ledger.
//
// The loop is deliberately coarse: presence is sampled, not streamed, so a
// viewer who hops out and back between ticks is treated as continuously
// present, and someone who arrives just before a tick gets the full credit.
// Each tick's reconciliation runs in its own goroutine so a slow Helix call
// or a large chatter list never delays the next tick; ledger increments are
// atomic SQL adds, so overlapping ticks cannot lose updates.
package watchtime
