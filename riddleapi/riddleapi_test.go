package riddleapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRandom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/random" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Riddle{Riddle: "What has keys but no locks?", Answer: "A piano"})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	r, err := c.Random(context.Background())
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if r.Riddle != "What has keys but no locks?" || r.Answer != "A piano" {
		t.Errorf("riddle = %+v", r)
	}
}

func TestRandomRedrawsOversized(t *testing.T) {
	long := strings.Repeat("x", MaxLen+1)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		riddle := Riddle{Riddle: long, Answer: "short"}
		if calls >= 3 {
			riddle.Riddle = "fits now"
		}
		_ = json.NewEncoder(w).Encode(riddle)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	r, err := c.Random(context.Background())
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if r.Riddle != "fits now" {
		t.Errorf("riddle = %q, want the redrawn one", r.Riddle)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRandomGivesUpAfterBudget(t *testing.T) {
	long := strings.Repeat("x", MaxLen+1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Riddle{Riddle: long, Answer: long})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, MaxAttempts: 2}
	if _, err := c.Random(context.Background()); err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
}

func TestRandomServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if _, err := c.Random(context.Background()); err == nil {
		t.Fatalf("expected error on 500")
	}
}
