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

func TestTelegram_Send(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN123", "42")
	tg.baseURL = srv.URL

	require.NoError(t, tg.Send(context.Background(), "<b>hello</b>"))
	assert.Equal(t, "/botTOKEN123/sendMessage", gotPath)
	assert.Equal(t, map[string]string{
		"chat_id":    "42",
		"text":       "<b>hello</b>",
		"parse_mode": "HTML",
	}, gotBody)
}

func TestTelegram_SendNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.baseURL = srv.URL

	err := tg.Send(context.Background(), "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sendMessage returned")
}

func TestTelegram_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.baseURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tg.Send(ctx, "late"))
}
