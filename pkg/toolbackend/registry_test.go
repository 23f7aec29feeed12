package toolbackend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoDefinition() Definition {
	return Definition{
		Name:        "echo_tool",
		Description: "Echoes its input back.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"echo": args["text"]}, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(0)

	require.NoError(t, r.Register(echoDefinition()))
	assert.True(t, r.Has("echo_tool"))

	t.Run("rejects duplicates", func(t *testing.T) {
		err := r.Register(echoDefinition())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects incomplete definitions", func(t *testing.T) {
		assert.Error(t, r.Register(Definition{Description: "d", Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil }}))
		assert.Error(t, r.Register(Definition{Name: "n", Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) { return nil, nil }}))
		assert.Error(t, r.Register(Definition{Name: "n", Description: "d"}))
	})
}

func TestRegistry_Descriptors_Sorted(t *testing.T) {
	r := NewRegistry(0)

	for _, name := range []string{"zeta_tool", "alpha_tool", "mid_tool"} {
		def := echoDefinition()
		def.Name = name
		require.NoError(t, r.Register(def))
	}

	descs := r.Descriptors()
	require.Len(t, descs, 3)
	assert.Equal(t, "alpha_tool", descs[0].Name)
	assert.Equal(t, "mid_tool", descs[1].Name)
	assert.Equal(t, "zeta_tool", descs[2].Name)
}

func TestRegistrySession_CallTool(t *testing.T) {
	r := NewRegistry(time.Second)
	require.NoError(t, r.Register(echoDefinition()))

	client, err := r.Open(context.Background())
	require.NoError(t, err)
	defer client.Close()

	result, err := client.CallTool(context.Background(), "echo_tool", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Empty(t, result.Error)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content), &payload))
	assert.Equal(t, "hi", payload["echo"])
}

func TestRegistrySession_SchemaRejectIsDomainError(t *testing.T) {
	r := NewRegistry(time.Second)
	require.NoError(t, r.Register(echoDefinition()))

	client, err := r.Open(context.Background())
	require.NoError(t, err)
	defer client.Close()

	// Missing required "text": handler must not run, and the reject travels
	// as an {"error"} field in the content, not as a Go error.
	result, err := client.CallTool(context.Background(), "echo_tool", map[string]any{})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content), &payload))
	assert.Contains(t, payload["error"], "invalid arguments")
}

func TestRegistrySession_HandlerErrorIsTransportError(t *testing.T) {
	r := NewRegistry(time.Second)
	require.NoError(t, r.Register(Definition{
		Name:        "broken_tool",
		Description: "Always fails.",
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, errors.New("database is on fire")
		},
	}))

	client, err := r.Open(context.Background())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.CallTool(context.Background(), "broken_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is on fire")
}

func TestRegistrySession_UnknownTool(t *testing.T) {
	r := NewRegistry(time.Second)

	client, err := r.Open(context.Background())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.CallTool(context.Background(), "missing_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestRegistrySession_ClosedSessionRefusesCalls(t *testing.T) {
	r := NewRegistry(time.Second)
	require.NoError(t, r.Register(echoDefinition()))

	client, err := r.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = client.ListTools(context.Background())
	assert.Error(t, err)

	_, err = client.CallTool(context.Background(), "echo_tool", map[string]any{"text": "x"})
	assert.Error(t, err)
}
