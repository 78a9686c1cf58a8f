package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqClient_GenerateText(t *testing.T) {
	var got groqChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"# Summary"}}]}`))
	}))
	defer srv.Close()

	cli, err := NewGroqClient("k", "m", srv.URL, Settings{MaxTokens: 100, Temperature: 0.5})
	require.NoError(t, err)

	out, err := cli.GenerateText(context.Background(), "describe")
	require.NoError(t, err)
	assert.Equal(t, "# Summary", out)
	assert.Equal(t, "m", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	assert.InDelta(t, 0.5, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "describe", got.Messages[0].Content)
}

func TestGroqClient_StatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusBadRequest, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		cli, err := NewGroqClient("k", "", srv.URL, Settings{})
		require.NoError(t, err)
		_, err = cli.GenerateText(context.Background(), "p")
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, tc.permanent, IsPermanent(err), "status %d", tc.status)
	}
}

func TestGroqClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	cli, err := NewGroqClient("k", "", srv.URL, Settings{})
	require.NoError(t, err)
	_, err = cli.GenerateText(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewGroqClient_RequiresKey(t *testing.T) {
	_, err := NewGroqClient(" ", "", "", Settings{})
	assert.Error(t, err)
}
