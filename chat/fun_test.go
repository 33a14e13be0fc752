package chat

import (
	"context"
	"strings"
	"testing"
)

func TestChipsAndGravy(t *testing.T) {
	b := newTestBot(t, nil)
	c := &fakeContext{author: Author{Login: "alice"}}
	b.cmdChipsAndGravy(context.Background(), c, nil)

	replies := c.allReplies()
	if len(replies) != 1 || replies[0] != `rabble_ron: "god save the queen!"` {
		t.Errorf("replies = %v", replies)
	}
}

func TestDickSizeSpecialCases(t *testing.T) {
	b := newTestBot(t, nil)
	tests := []struct {
		login string
		want  string
	}{
		{"riddlerrr", "biggest dick in all the land"},
		{"quecrad", "long dong silver"},
		{"ryzaha", "human tripod"},
	}
	for _, tt := range tests {
		c := &fakeContext{author: Author{Login: tt.login}}
		b.cmdDickSize(context.Background(), c, nil)
		replies := c.allReplies()
		if len(replies) != 1 || !strings.Contains(replies[0], tt.want) {
			t.Errorf("%s: replies = %v, want substring %q", tt.login, replies, tt.want)
		}
	}
}

func TestDickSizeRandomForEveryoneElse(t *testing.T) {
	b := newTestBot(t, nil)
	c := &fakeContext{author: Author{Login: "random_viewer"}}
	b.cmdDickSize(context.Background(), c, nil)

	replies := c.allReplies()
	if len(replies) != 1 {
		t.Fatalf("replies = %v", replies)
	}
	if !strings.HasPrefix(replies[0], "Your dick size is ") || !strings.HasSuffix(replies[0], " inches long.") {
		t.Errorf("reply = %q", replies[0])
	}
}

func TestPizzaComboShape(t *testing.T) {
	b := newTestBot(t, nil)
	for i := 0; i < 50; i++ {
		c := &fakeContext{author: Author{Login: "alice"}}
		b.cmdPizza(context.Background(), c, nil)
		replies := c.allReplies()
		if len(replies) == 0 {
			t.Fatalf("no reply")
		}
		if !strings.HasPrefix(replies[0], "Your pizza combo is ") {
			t.Errorf("reply = %q", replies[0])
		}
		// At most the combo plus one punishment line.
		if len(replies) > 2 {
			t.Errorf("too many replies: %v", replies)
		}
	}
}

func TestPickToppingAvoidsBadItemUsually(t *testing.T) {
	// With probability 0 the bad item must never be drawn.
	for i := 0; i < 100; i++ {
		pick, bad := pickTopping([]string{"A", "B", "Pineapple"}, "Pineapple", 0)
		if bad || pick == "Pineapple" {
			t.Fatalf("drew the bad item at probability 0")
		}
	}
	// With probability 1 it always is.
	pick, bad := pickTopping([]string{"A", "B", "Pineapple"}, "Pineapple", 1)
	if !bad || pick != "Pineapple" {
		t.Fatalf("pick = %q bad = %v, want forced bad item", pick, bad)
	}
}

func TestStaticReplies(t *testing.T) {
	b := newTestBot(t, nil)
	tests := []struct {
		name    string
		handler Handler
		want    string
	}{
		{"ip", b.cmdIP, "01:21:D0:1"},
		{"bbm", b.cmdBBM, "0121DO1"},
		{"build", b.cmdBuild, "Last Epoch build: https://maxroll.gg/last-epoch/build-guides/torment-warlock-guide"},
	}
	for _, tt := range tests {
		c := &fakeContext{author: Author{Login: "alice"}}
		tt.handler(context.Background(), c, nil)
		replies := c.allReplies()
		if len(replies) != 1 || replies[0] != tt.want {
			t.Errorf("%s: replies = %v, want %q", tt.name, replies, tt.want)
		}
	}
}

func TestCommandTable(t *testing.T) {
	b := newTestBot(t, nil)
	for _, name := range []string{"watchtime", "topwatchers", "song", "title", "chipsandgravy", "dicksize", "pizza", "ip", "bbm", "bbmpin", "build"} {
		if _, ok := b.commands[name]; !ok {
			t.Errorf("command %q not registered", name)
		}
	}
}
