package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersEvents(t *testing.T) {
	sender := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{sender}, []string{EventOrderFilled, EventRiskPaused}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventOrderFilled, "filled", "msg"))
	require.NoError(t, n.Notify(context.Background(), EventSignal, "signal", "msg"))
	require.NoError(t, n.Notify(context.Background(), EventRiskPaused, "paused", "msg"))

	assert.Equal(t, []string{"filled", "paused"}, sender.titles)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	sender := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventSignal, "signal", "msg"))
	assert.Equal(t, []string{"signal"}, sender.titles)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	sender := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{sender}, []string{EventOrderFilled}, testLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "anything", "msg"))
	assert.Equal(t, []string{"anything"}, sender.titles)
}

func TestDispatchIsolatesSenderFailures(t *testing.T) {
	broken := &recordingSender{name: "broken", err: errors.New("boom")}
	healthy := &recordingSender{name: "healthy"}
	n := NewNotifier([]Sender{broken, healthy}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "title", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Contains(t, err.Error(), "broken: boom")
	assert.Equal(t, []string{"title"}, healthy.titles, "healthy sender still delivers")
}

func TestNotifierWithoutSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.NotifyAll(context.Background(), "title", "msg"))
}

func TestDiscordSenderPostsWebhook(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)
	require.NoError(t, sender.Send(context.Background(), "Order filled", "lot 0.50"))
	assert.Equal(t, "**Order filled**\nlot 0.50", got["content"])
	assert.Equal(t, "discord", sender.Name())
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestTelegramSenderName(t *testing.T) {
	assert.Equal(t, "telegram", NewTelegramSender("tok", "chat").Name())
}
