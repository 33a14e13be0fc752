package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/riddlerrr/riddlebot/config"
	"github.com/riddlerrr/riddlebot/riddleapi"
	"github.com/riddlerrr/riddlebot/spotify"
	"github.com/riddlerrr/riddlebot/testutil"
	"github.com/riddlerrr/riddlebot/twitchapi"
)

// rewriteTransport redirects requests for the real Twitch hosts to the mock server.
type rewriteTransport struct {
	host string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.host
	return http.DefaultTransport.RoundTrip(req)
}

func newHelixForTest(t *testing.T, mock *testutil.MockTwitchServer) *twitchapi.HelixClient {
	t.Helper()
	u, err := url.Parse(mock.URL)
	if err != nil {
		t.Fatalf("parse mock url: %v", err)
	}
	client := &http.Client{Transport: rewriteTransport{host: u.Host}}
	app := &twitchapi.TokenSource{ClientID: "cid", ClientSecret: "secret", HTTPClient: client}
	app.SetToken("app-token", time.Now().Add(time.Hour))
	return &twitchapi.HelixClient{
		AppTokenSource:  app,
		UserTokenSource: twitchapi.StaticUserToken("user-token"),
		ClientID:        "cid",
		HTTPClient:      client,
	}
}

func TestRiddleReward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(riddleapi.Riddle{
			Riddle: "What gets wetter as it dries?",
			Answer: "A towel",
		})
	}))
	defer srv.Close()

	b := newTestBot(t, nil)
	b.riddles = &riddleapi.Client{BaseURL: srv.URL}
	b.RiddleRevealDelay = 10 * time.Millisecond

	c := &fakeContext{author: Author{Login: "alice"}}
	b.riddleReward(context.Background(), c)

	replies := c.allReplies()
	if len(replies) != 2 {
		t.Fatalf("replies = %v, want riddle then answer", replies)
	}
	if !strings.HasSuffix(replies[0], "You have 30 seconds to guess the answer") {
		t.Errorf("riddle reply = %q", replies[0])
	}
	if replies[1] != "The answer to your riddle was: A towel" {
		t.Errorf("answer reply = %q", replies[1])
	}
}

func TestCoinflipReward(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockUserResponse("111", "riddlerrr")
	mock.Handlers["/helix/predictions"] = func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{
					"id": "pred-1",
					"outcomes": []map[string]string{
						{"id": "out-heads", "title": "Heads"},
						{"id": "out-tails", "title": "Tails"},
					},
				}},
			})
		case http.MethodPatch:
			if r.URL.Query().Get("status") != "RESOLVED" {
				t.Errorf("status = %s", r.URL.Query().Get("status"))
			}
			win := r.URL.Query().Get("winning_outcome_id")
			if win != "out-heads" && win != "out-tails" {
				t.Errorf("winning_outcome_id = %s", win)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{{"id": "pred-1"}}})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}

	b := newTestBot(t, nil)
	b.helix = newHelixForTest(t, mock)
	b.CoinflipWindow = 10 * time.Millisecond

	c := &fakeContext{author: Author{Login: "alice"}}
	b.coinflipReward(context.Background(), c)

	says := c.allSays()
	if len(says) != 1 {
		t.Fatalf("says = %v", says)
	}
	if says[0] != "The result is Heads!" && says[0] != "The result is Tails!" {
		t.Errorf("say = %q", says[0])
	}
}

func TestCoinflipRewardAlreadyActive(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockUserResponse("111", "riddlerrr")
	mock.Handlers["/helix/predictions"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "prediction event already active, only one allowed at a time",
		})
	}

	b := newTestBot(t, nil)
	b.helix = newHelixForTest(t, mock)
	b.CoinflipWindow = 10 * time.Millisecond

	c := &fakeContext{author: Author{Login: "alice"}}
	b.coinflipReward(context.Background(), c)

	says := c.allSays()
	if len(says) != 1 || says[0] != "A prediction is already underway!" {
		t.Errorf("says = %v", says)
	}
}

func TestSongRequestReward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/tracks/"):
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":      "track1",
				"name":    "Good Song",
				"uri":     "spotify:track:track1",
				"artists": []map[string]string{{"name": "The Band"}},
			})
		case r.URL.Path == "/v1/me/player/queue":
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(r.URL.Path, "/v1/playlists/"):
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	b := newTestBot(t, nil)
	b.spotify = &spotify.Client{BaseURL: srv.URL, HTTPClient: srv.Client(), PlaylistID: "plist"}

	c := &fakeContext{author: Author{Login: "alice"}, msgID: "msg-1"}
	b.songRequestReward(context.Background(), c, "https://open.spotify.com/track/track1?si=xyz")

	replies := c.allReplies()
	if len(replies) != 1 || replies[0] != "Added Good Song by The Band to the queue." {
		t.Errorf("replies = %v", replies)
	}
	if says := c.allSays(); len(says) != 0 {
		t.Errorf("unexpected says %v", says)
	}
}

func TestSongRequestRewardUnknownTrack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":404}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	b := newTestBot(t, nil)
	b.spotify = &spotify.Client{BaseURL: srv.URL, HTTPClient: srv.Client()}

	c := &fakeContext{author: Author{Login: "alice"}, msgID: "msg-2"}
	b.songRequestReward(context.Background(), c, "https://open.spotify.com/track/doesnotexist")

	replies := c.allReplies()
	if len(replies) != 1 || replies[0] != "Unable to find the song you have linked." {
		t.Errorf("replies = %v", replies)
	}
	says := c.allSays()
	if len(says) != 1 || says[0] != "/delete msg-2" {
		t.Errorf("says = %v, want the /delete for the redemption message", says)
	}
}

func TestHandleRewardRoutesByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(riddleapi.Riddle{Riddle: "Q?", Answer: "A"})
	}))
	defer srv.Close()

	cfg := &config.Config{
		TwitchChannel:     "riddlerrr",
		TwitchBotUsername: "riddlerrrbot",
		CommandPrefix:     "!",
		RiddleRewardID:    "riddle-reward",
	}
	b := New(cfg, nil, nil, nil, &riddleapi.Client{BaseURL: srv.URL}, nil)
	b.RiddleRevealDelay = time.Millisecond

	c := &fakeContext{author: Author{Login: "alice"}}
	b.handleReward(context.Background(), c, "riddle-reward", "")

	deadline := time.After(2 * time.Second)
	for {
		if len(c.allReplies()) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("riddle handler did not run, replies = %v", c.allReplies())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Unconfigured ids are ignored.
	c2 := &fakeContext{author: Author{Login: "alice"}}
	b.handleReward(context.Background(), c2, "some-other-reward", "")
	time.Sleep(20 * time.Millisecond)
	if len(c2.allReplies()) != 0 || len(c2.allSays()) != 0 {
		t.Errorf("unknown reward id produced output: %v %v", c2.allReplies(), c2.allSays())
	}
}
