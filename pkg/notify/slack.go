package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const slackAPIBase = "https://slack.com/api"

// SlackClient posts messages via the Slack Web API.
type SlackClient struct {
	token      string
	channel    string
	baseURL    string
	httpClient *http.Client
}

// NewSlackClient creates a client with the given bot token and default
// channel.
func NewSlackClient(token, channel string) (*SlackClient, error) {
	if token == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}
	return &SlackClient{
		token:      token,
		channel:    channel,
		baseURL:    slackAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *SlackClient) SetBaseURL(u string) {
	c.baseURL = u
}

// PostMessage posts text to a channel. An empty channel falls back to the
// client's default.
func (c *SlackClient) PostMessage(ctx context.Context, channel, text string) error {
	if channel == "" {
		channel = c.channel
	}
	if channel == "" {
		return fmt.Errorf("slack channel is required")
	}

	payload, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode slack response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("slack API error: %s", body.Error)
	}

	log.Debug().Str("channel", channel).Msg("Slack message posted")
	return nil
}
