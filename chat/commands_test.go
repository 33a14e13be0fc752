package chat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/riddlerrr/riddlebot/config"
	"github.com/riddlerrr/riddlebot/testutil"
	"github.com/riddlerrr/riddlebot/viewer"
)

// fakeContext records everything a handler sends.
type fakeContext struct {
	mu      sync.Mutex
	author  Author
	msgID   string
	replies []string
	says    []string
}

func (f *fakeContext) Author() Author    { return f.author }
func (f *fakeContext) MessageID() string { return f.msgID }

func (f *fakeContext) Reply(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
}

func (f *fakeContext) Say(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.says = append(f.says, text)
}

func (f *fakeContext) allReplies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

func (f *fakeContext) allSays() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.says...)
}

func newTestBot(t *testing.T, viewers *viewer.Store) *Bot {
	t.Helper()
	cfg := &config.Config{
		TwitchChannel:     "riddlerrr",
		TwitchBotUsername: "riddlerrrbot",
		CommandPrefix:     "!",
	}
	return New(cfg, viewers, nil, nil, nil, nil)
}

func TestWatchTimeNoData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	b := newTestBot(t, viewer.NewStore(db))
	c := &fakeContext{author: Author{ID: "does-not-exist", Login: "ghost"}}

	b.cmdWatchTime(context.Background(), c, nil)

	replies := c.allReplies()
	if len(replies) != 1 || replies[0] != "No data found!" {
		t.Errorf("replies = %v, want [No data found!]", replies)
	}
}

func TestWatchTimeFormatsHoursMinutes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := viewer.NewStore(db)
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM viewers WHERE viewer_id='cmd-wt-1'`) })
	ctx := context.Background()
	if err := store.UpsertIncrement(ctx, "cmd-wt-1", "Alice", 125); err != nil {
		t.Fatalf("seed: %v", err)
	}

	b := newTestBot(t, store)
	c := &fakeContext{author: Author{ID: "cmd-wt-1", Login: "alice"}}
	b.cmdWatchTime(ctx, c, nil)

	replies := c.allReplies()
	if len(replies) != 1 {
		t.Fatalf("replies = %v", replies)
	}
	if !strings.Contains(replies[0], "2 hours and 5 minutes") {
		t.Errorf("reply = %q, want 2 hours and 5 minutes", replies[0])
	}
}

func TestTopWatchersFormatting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := viewer.NewStore(db)
	ctx := context.Background()
	t.Cleanup(func() { _, _ = db.Exec(`DELETE FROM viewers WHERE viewer_id LIKE 'cmd-top-%'`) })
	// Make these dominate any rows left behind by other tests.
	seed := []struct {
		id   string
		name string
		mins int64
	}{
		{"cmd-top-1", "First", 100000},
		{"cmd-top-2", "Second", 99990},
	}
	for _, s := range seed {
		if err := store.UpsertIncrement(ctx, s.id, s.name, s.mins); err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}

	b := newTestBot(t, store)
	c := &fakeContext{author: Author{ID: "x", Login: "someone"}}
	b.cmdTopWatchers(ctx, c, nil)

	replies := c.allReplies()
	if len(replies) != 1 {
		t.Fatalf("replies = %v", replies)
	}
	if !strings.HasPrefix(replies[0], "1. First - 1666h, 40m | 2. Second - 1666h, 30m") {
		t.Errorf("reply = %q", replies[0])
	}
}

func TestTitleUsageGuard(t *testing.T) {
	b := newTestBot(t, nil)
	c := &fakeContext{author: Author{ID: "1", Login: "riddlerrr"}}
	b.cmdTitle(context.Background(), c, nil)

	replies := c.allReplies()
	if len(replies) != 2 || replies[0] != "The new title cannot be blank!" {
		t.Errorf("replies = %v", replies)
	}
}

func TestTitleRejectsNonBroadcaster(t *testing.T) {
	b := newTestBot(t, nil)
	c := &fakeContext{author: Author{ID: "2", Login: "viewer"}}
	b.cmdTitle(context.Background(), c, []string{"New", "Title"})

	replies := c.allReplies()
	if len(replies) != 1 || replies[0] != "Only the broadcaster can change the title." {
		t.Errorf("replies = %v", replies)
	}
}
