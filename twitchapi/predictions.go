package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrPredictionActive is returned when Twitch refuses to create a prediction
// because one is already running on the channel.
var ErrPredictionActive = errors.New("prediction event already active")

// PredictionOutcome is one side of a prediction.
type PredictionOutcome struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Prediction is the created prediction with its server-assigned outcome ids.
type Prediction struct {
	ID       string              `json:"id"`
	Outcomes []PredictionOutcome `json:"outcomes"`
}

// Outcome returns the outcome whose title matches (case-insensitive), or nil.
func (p *Prediction) Outcome(title string) *PredictionOutcome {
	for i := range p.Outcomes {
		if strings.EqualFold(p.Outcomes[i].Title, title) {
			return &p.Outcomes[i]
		}
	}
	return nil
}

// CreatePrediction opens a channel prediction. Requires a broadcaster user
// token with channel:manage:predictions.
func (hc *HelixClient) CreatePrediction(ctx context.Context, broadcasterID, title string, outcomes []string, windowSeconds int) (*Prediction, error) {
	if broadcasterID == "" || title == "" || len(outcomes) < 2 {
		return nil, fmt.Errorf("broadcasterID, title and at least two outcomes required")
	}
	type outcomeReq struct {
		Title string `json:"title"`
	}
	payload := struct {
		BroadcasterID    string       `json:"broadcaster_id"`
		Title            string       `json:"title"`
		Outcomes         []outcomeReq `json:"outcomes"`
		PredictionWindow int          `json:"prediction_window"`
	}{BroadcasterID: broadcasterID, Title: title, PredictionWindow: windowSeconds}
	for _, o := range outcomes {
		payload.Outcomes = append(payload.Outcomes, outcomeReq{Title: o})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := hc.doHelix(ctx, func(tok string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitch.tv/helix/predictions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Client-Id", hc.ClientID)
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, hc.userToken, nil)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp)

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if strings.Contains(errBody.Message, "prediction event already active") {
			return nil, ErrPredictionActive
		}
		return nil, fmt.Errorf("helix create prediction: %s: %s", resp.Status, errBody.Message)
	}
	var res struct {
		Data []Prediction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, fmt.Errorf("empty prediction response")
	}
	return &res.Data[0], nil
}

// ResolvePrediction locks in the winning outcome of a running prediction.
func (hc *HelixClient) ResolvePrediction(ctx context.Context, broadcasterID, predictionID, winningOutcomeID string) error {
	if broadcasterID == "" || predictionID == "" || winningOutcomeID == "" {
		return fmt.Errorf("broadcasterID, predictionID and winningOutcomeID required")
	}
	resp, err := hc.doHelix(ctx, func(tok string) (*http.Request, error) {
		q := url.Values{}
		q.Set("broadcaster_id", broadcasterID)
		q.Set("id", predictionID)
		q.Set("status", "RESOLVED")
		q.Set("winning_outcome_id", winningOutcomeID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, "https://api.twitch.tv/helix/predictions?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Client-Id", hc.ClientID)
		req.Header.Set("Authorization", "Bearer "+tok)
		return req, nil
	}, hc.userToken, nil)
	if err != nil {
		return err
	}
	defer drainClose(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix resolve prediction: unexpected status %s", resp.Status)
	}
	return nil
}
