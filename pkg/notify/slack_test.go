package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackClient_PostMessage(t *testing.T) {
	var got struct {
		Channel string `json:"channel"`
		Text    string `json:"text"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat.postMessage", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	client, err := NewSlackClient("xoxb-test", "#general")
	require.NoError(t, err)
	client.SetBaseURL(srv.URL)

	require.NoError(t, client.PostMessage(context.Background(), "", "daily summary"))
	assert.Equal(t, "Bearer xoxb-test", auth)
	assert.Equal(t, "#general", got.Channel)
	assert.Equal(t, "daily summary", got.Text)
}

func TestSlackClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	client, err := NewSlackClient("xoxb-test", "#missing")
	require.NoError(t, err)
	client.SetBaseURL(srv.URL)

	err = client.PostMessage(context.Background(), "", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestNotifier_NilClientsAreNoOps(t *testing.T) {
	var n *Notifier

	sent, err := n.PostSlack(context.Background(), "#x", "hi")
	require.NoError(t, err)
	assert.False(t, sent)

	assert.NoError(t, n.SendEmail("a@b.c", "s", "b"))
}

func TestNewSlackClient_RequiresToken(t *testing.T) {
	_, err := NewSlackClient("", "#general")
	assert.Error(t, err)
}
