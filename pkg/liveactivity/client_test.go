package liveactivity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelayClientStart(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"sent"}`))
	}))
	defer server.Close()

	client := NewRelayClient(server.URL+"/", WithSandbox(true))
	err := client.Start(context.Background(), "abc", ContentState{
		Type: ContentTypePreGame, Title: "Game", StartTimeMs: 1000, EndTimeMs: 2000,
	})
	require.NoError(t, err)

	require.Equal(t, "/start", gotPath)
	require.Equal(t, "abc", gotBody["token"])
	require.Equal(t, true, gotBody["isSandbox"])

	payload, ok := gotBody["payload"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Game", payload["title"])
	require.EqualValues(t, 1000, payload["startTimeMs"])
	require.EqualValues(t, 2000, payload["endTimeMs"])
}

func TestRelayClientUpdateSendsTypedPayload(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/update", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewRelayClient(server.URL)
	err := client.Update(context.Background(), "abc", ContentState{
		Type: ContentTypePreGame, Title: "Game", StartTimeMs: 1000, EndTimeMs: 2000,
	})
	require.NoError(t, err)

	payload, ok := gotBody["payload"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, ContentTypePreGame, payload["type"])
}

func TestRelayClientEnd(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/end", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewRelayClient(server.URL)
	require.NoError(t, client.End(context.Background(), "abc"))
	require.Equal(t, "abc", gotBody["token"])
}

func TestRelayClientDecodesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to send live activity start notification","details":"bad device token"}`))
	}))
	defer server.Close()

	client := NewRelayClient(server.URL)
	err := client.Start(context.Background(), "abc", ContentState{
		Type: ContentTypePreGame, Title: "Game", StartTimeMs: 1000, EndTimeMs: 2000,
	})

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	require.Equal(t, http.StatusInternalServerError, relayErr.StatusCode)
	require.Equal(t, "Failed to send live activity start notification", relayErr.Message)
	require.Equal(t, "bad device token", relayErr.Details)
}

func TestRelayClientFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewRelayClient(server.URL)
	err := client.End(context.Background(), "abc")

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	require.Equal(t, http.StatusText(http.StatusBadGateway), relayErr.Message)
}
