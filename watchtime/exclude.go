package watchtime

import "strings"

// Excluded reports whether a chatter login earns no watch time: the channel
// owner, the bot's own account, and any login on the ignore list. Matching is
// case-insensitive since Twitch logins are case-preserving in chatter lists.
func Excluded(login, owner, bot string, ignore []string) bool {
	if strings.EqualFold(login, owner) || strings.EqualFold(login, bot) {
		return true
	}
	for _, name := range ignore {
		if strings.EqualFold(login, name) {
			return true
		}
	}
	return false
}
